package delivery

import (
	"regexp"
	"sort"
	"strings"
)

// ExternalService describes a file hosting service photographers may deliver through.
type ExternalService struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	URLPattern       string `json:"url_pattern"`
	SupportsPassword bool   `json:"supports_password"`
	SupportsExpiry   bool   `json:"supports_expiry"`
	MaxFileSizeGB    int    `json:"max_file_size_gb"`

	pattern *regexp.Regexp
}

// Matches reports whether rawURL is a link hosted by the service.
func (s ExternalService) Matches(rawURL string) bool {
	return s.pattern != nil && s.pattern.MatchString(strings.TrimSpace(rawURL))
}

var directory = buildDirectory([]ExternalService{
	{ID: "google_drive", Name: "Google Drive", URLPattern: `^https://(drive|docs)\.google\.com/`, MaxFileSizeGB: 15},
	{ID: "dropbox", Name: "Dropbox", URLPattern: `^https://(www\.)?dropbox\.com/`, SupportsPassword: true, SupportsExpiry: true, MaxFileSizeGB: 2},
	{ID: "wetransfer", Name: "WeTransfer", URLPattern: `^https://(we\.tl|(www\.)?wetransfer\.com)/`, SupportsPassword: true, SupportsExpiry: true, MaxFileSizeGB: 2},
	{ID: "onedrive", Name: "OneDrive", URLPattern: `^https://(1drv\.ms|onedrive\.live\.com)/`, SupportsPassword: true, SupportsExpiry: true, MaxFileSizeGB: 250},
	{ID: "pixieset", Name: "Pixieset", URLPattern: `^https://[a-z0-9-]+\.pixieset\.com/`, SupportsPassword: true, SupportsExpiry: true, MaxFileSizeGB: 100},
	{ID: "smugmug", Name: "SmugMug", URLPattern: `^https://[a-z0-9-]+\.smugmug\.com/`, SupportsPassword: true, MaxFileSizeGB: 50},
	{ID: "icloud", Name: "iCloud Drive", URLPattern: `^https://(www\.)?icloud\.com/`, SupportsExpiry: true, MaxFileSizeGB: 50},
})

func buildDirectory(services []ExternalService) map[string]ExternalService {
	out := make(map[string]ExternalService, len(services))
	for _, svc := range services {
		svc.pattern = regexp.MustCompile(svc.URLPattern)
		out[svc.ID] = svc
	}
	return out
}

// LookupService finds a directory entry by id.
func LookupService(id string) (ExternalService, bool) {
	svc, ok := directory[strings.ToLower(strings.TrimSpace(id))]
	return svc, ok
}

// Services lists the directory ordered by id.
func Services() []ExternalService {
	out := make([]ExternalService, 0, len(directory))
	for _, svc := range directory {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

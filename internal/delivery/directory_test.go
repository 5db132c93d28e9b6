package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryListsKnownServices(t *testing.T) {
	services := Services()
	ids := make([]string, 0, len(services))
	for _, svc := range services {
		ids = append(ids, svc.ID)
	}
	assert.Equal(t, []string{"dropbox", "google_drive", "icloud", "onedrive", "pixieset", "smugmug", "wetransfer"}, ids)
}

func TestLookupServiceMatchesLinks(t *testing.T) {
	svc, ok := LookupService(" WeTransfer ")
	require.True(t, ok)
	assert.True(t, svc.Matches("https://we.tl/t-abc"))
	assert.True(t, svc.Matches("https://wetransfer.com/downloads/abc"))
	assert.False(t, svc.Matches("http://we.tl/t-abc"))

	pixieset, ok := LookupService("pixieset")
	require.True(t, ok)
	assert.True(t, pixieset.Matches("https://jane-doe.pixieset.com/wedding/"))

	_, ok = LookupService("flickr")
	assert.False(t, ok)
}

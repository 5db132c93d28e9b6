package errors

import "net/http"

// Code is the internal error classification; it picks the HTTP status and the Kind.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeAlreadyProcessed Code = "ALREADY_PROCESSED"
	CodeNotDeliverable   Code = "NOT_DELIVERABLE"
	CodeNotEligible      Code = "NOT_ELIGIBLE"
	CodeAlreadyConfirmed Code = "ALREADY_CONFIRMED"
	CodeGateway          Code = "GATEWAY_ERROR"
)

// Kind is the stable, caller-facing error category carried in result envelopes.
type Kind string

const (
	KindValidation       Kind = "ValidationError"
	KindAuthentication   Kind = "AuthenticationRequired"
	KindAuthorization    Kind = "AuthorizationDenied"
	KindNotFound         Kind = "NotFoundError"
	KindAlreadyProcessed Kind = "AlreadyProcessed"
	KindNotDeliverable   Kind = "NotDeliverable"
	KindNotEligible      Kind = "NotEligible"
	KindAlreadyConfirmed Kind = "AlreadyConfirmed"
	KindGateway          Kind = "GatewayError"
	KindUnexpected       Kind = "UnexpectedError"
)

type Metadata struct {
	Kind           Kind
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

// Retryable and DetailsAllowed default to false; only the exceptions are spelled out.
var metadataByCode = map[Code]Metadata{
	CodeValidation:       {Kind: KindValidation, HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
	CodeUnauthorized:     {Kind: KindAuthentication, HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
	CodeForbidden:        {Kind: KindAuthorization, HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
	CodeNotFound:         {Kind: KindNotFound, HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
	CodeConflict:         {Kind: KindUnexpected, HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
	CodeStateConflict:    {Kind: KindUnexpected, HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", DetailsAllowed: true},
	CodeInternal:         {Kind: KindUnexpected, HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
	CodeDependency:       {Kind: KindUnexpected, HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
	CodeAlreadyProcessed: {Kind: KindAlreadyProcessed, HTTPStatus: http.StatusConflict, PublicMessage: "already processed", DetailsAllowed: true},
	CodeNotDeliverable:   {Kind: KindNotDeliverable, HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "escrow is not awaiting confirmation", DetailsAllowed: true},
	CodeNotEligible:      {Kind: KindNotEligible, HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "escrow is not eligible for this action", DetailsAllowed: true},
	CodeAlreadyConfirmed: {Kind: KindAlreadyConfirmed, HTTPStatus: http.StatusConflict, PublicMessage: "delivery already confirmed"},
	CodeGateway:          {Kind: KindGateway, HTTPStatus: http.StatusBadGateway, PublicMessage: "payment gateway error", Retryable: true},
}

// MetadataFor falls back to the internal error entry for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// KindFor maps a code onto its caller-facing kind. Unmapped codes are UnexpectedError.
func KindFor(code Code) Kind {
	return MetadataFor(code).Kind
}

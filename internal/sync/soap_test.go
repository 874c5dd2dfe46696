package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginEnvelopeRoundTrip(t *testing.T) {
	body, err := buildLoginEnvelope("svc-user", "svc-pass")
	require.NoError(t, err)

	assert.Contains(t, string(body), "<username>svc-user</username>")
	assert.Contains(t, string(body), "<password>svc-pass</password>")
	assert.Contains(t, string(body), soapNS)
	assert.Contains(t, string(body), actionNS)
}

func TestParseLoginResponse(t *testing.T) {
	token, err := parseLoginResponse([]byte(`<?xml version="1.0"?>
		<Envelope><Body><LoginResponse><LoginResult>abc123</LoginResult></LoginResponse></Body></Envelope>`))
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
}

func TestParseLoginResponseMissingToken(t *testing.T) {
	_, err := parseLoginResponse([]byte(`<?xml version="1.0"?>
		<Envelope><Body><LoginResponse></LoginResponse></Body></Envelope>`))
	assert.Error(t, err)
}

func TestSyncEnvelopeCarriesTokenAndCursor(t *testing.T) {
	since := time.Date(2026, 7, 1, 8, 30, 0, 0, time.UTC)
	body, err := buildSyncEnvelope("abc123", since)
	require.NoError(t, err)

	assert.Contains(t, string(body), "abc123")
	assert.Contains(t, string(body), "2026-07-01T08:30:00Z")
	assert.Contains(t, string(body), "GetCorrespondences")
}

func TestParseSyncResponse(t *testing.T) {
	docs, err := parseSyncResponse([]byte(`<?xml version="1.0"?>
		<Envelope><Body><GetCorrespondencesResponse>
		<Correspondences><DocId>D-1</DocId><Number>5</Number><Subject>s</Subject></Correspondences>
		</GetCorrespondencesResponse></Body></Envelope>`))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "D-1", docs[0].DocID)
}

package tasks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJob(t *testing.T) {
	job, err := DecodeJob([]byte(`{"session_id":"s1","names":["Ada","Ivy"]}`))
	require.NoError(t, err)
	assert.Equal(t, ReasonJob{SessionID: "s1", Names: []string{"Ada", "Ivy"}}, *job)
}

func TestDecodeJobKeepsSessionOfMalformedPayload(t *testing.T) {
	_, err := DecodeJob([]byte(`{"session_id":"s1","names":"Ada"}`))
	var malformed *MalformedJobError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "s1", malformed.SessionID)

	_, err = DecodeJob([]byte(`not json`))
	require.True(t, errors.As(err, &malformed))
	assert.Empty(t, malformed.SessionID)
}

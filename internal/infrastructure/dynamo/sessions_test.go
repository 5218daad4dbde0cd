package dynamo

import (
	"bytes"
	"encoding/base64"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	key := map[string]types.AttributeValue{
		"session_id": &types.AttributeValueMemberS{Value: "ses-1"},
		"user_id":    &types.AttributeValueMemberS{Value: "usr-1"},
		"created_at": &types.AttributeValueMemberS{Value: "2025-06-01T10:00:00Z"},
	}
	cursor := encodeCursor(key)
	require.NotEmpty(t, cursor)

	got, err := decodeCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestEncodeCursorUnexpectedShapeIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	key := map[string]types.AttributeValue{
		"session_id": &types.AttributeValueMemberN{Value: "1"},
	}
	assert.Empty(t, encodeCursor(key))
	assert.Contains(t, buf.String(), "pagination")
}

func TestDecodeCursorMalformed(t *testing.T) {
	_, err := decodeCursor("%%% not base64 %%%")
	assert.Error(t, err)

	_, err = decodeCursor(base64.RawURLEncoding.EncodeToString([]byte("only|two")))
	assert.Error(t, err)
}

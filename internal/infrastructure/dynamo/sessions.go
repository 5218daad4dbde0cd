package dynamo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/veriflow/orchestrator/internal/domain"
)

// SessionRepo provides typed DynamoDB operations for the verification
// sessions table.
type SessionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSessionRepo(client *dynamodb.Client, tableName string) *SessionRepo {
	return &SessionRepo{client: client, tableName: tableName}
}

// Put inserts a new session. Fails with ErrConflict if the id already exists.
func (r *SessionRepo) Put(ctx context.Context, s *domain.VerificationSession) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(session_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("session %s exists: %w", s.SessionID, domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*domain.VerificationSession, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("session_id", sessionID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	var s domain.VerificationSession
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateVersioned applies updates only when the stored version still matches
// expectedVersion, bumping the version and updated_at in the same write.
// Two racing callers can never both win: the loser gets ErrConflict. This is
// the per-session serialization guarantee the orchestrator relies on.
func (r *SessionRepo) UpdateVersioned(ctx context.Context, sessionID string, expectedVersion int64, updates map[string]interface{}) error {
	updates[fieldVersion] = expectedVersion + 1
	updates[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ue.Values[":expected"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedVersion)}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("session_id", sessionID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("version = :expected"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("session %s version mismatch: %w", sessionID, domain.ErrConflict)
		}
		return err
	}
	return nil
}

// ListByUser returns a page of the user's sessions, newest first, via the
// user_id-created_at GSI. cursor is a base64-encoded session id.
func (r *SessionRepo) ListByUser(ctx context.Context, userID string, limit int32, cursor string) ([]domain.VerificationSession, string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-created_at-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	}
	if cursor != "" {
		start, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrValidation)
		}
		input.ExclusiveStartKey = start
	}
	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var sessions []domain.VerificationSession
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &sessions); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if len(out.LastEvaluatedKey) > 0 {
		nextCursor = encodeCursor(out.LastEvaluatedKey)
	}
	return sessions, nextCursor, nil
}

// ScanOpen returns every session not yet in a terminal state. Used by the
// abandonment sweeper; the table stays small because terminal sessions
// dominate over time and are filtered server-side.
func (r *SessionRepo) ScanOpen(ctx context.Context) ([]domain.VerificationSession, error) {
	var sessions []domain.VerificationSession
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(r.tableName),
			FilterExpression: aws.String("#s <> :approved AND #s <> :rejected AND #s <> :review"),
			ExpressionAttributeNames: map[string]string{
				"#s": fieldStatus,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":approved": &types.AttributeValueMemberS{Value: string(domain.StatusApproved)},
				":rejected": &types.AttributeValueMemberS{Value: string(domain.StatusRejected)},
				":review":   &types.AttributeValueMemberS{Value: string(domain.StatusManualReview)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.VerificationSession
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		sessions = append(sessions, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return sessions, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// Scan returns every session. Used only by the stats aggregation.
func (r *SessionRepo) Scan(ctx context.Context) ([]domain.VerificationSession, error) {
	var sessions []domain.VerificationSession
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.VerificationSession
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		sessions = append(sessions, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return sessions, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func encodeCursor(key map[string]types.AttributeValue) string {
	// The GSI's LastEvaluatedKey carries table + index keys; all string attrs here.
	plain := ""
	for _, name := range []string{"session_id", "user_id", "created_at"} {
		v, ok := key[name].(*types.AttributeValueMemberS)
		if !ok {
			slog.Warn("unexpected pagination key shape, dropping cursor", "attr", name)
			return ""
		}
		if plain != "" {
			plain += "|"
		}
		plain += v.Value
	}
	return base64.RawURLEncoding.EncodeToString([]byte(plain))
}

func decodeCursor(cursor string) (map[string]types.AttributeValue, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(string(b), "|", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed cursor")
	}
	return map[string]types.AttributeValue{
		"session_id": &types.AttributeValueMemberS{Value: parts[0]},
		"user_id":    &types.AttributeValueMemberS{Value: parts[1]},
		"created_at": &types.AttributeValueMemberS{Value: parts[2]},
	}, nil
}

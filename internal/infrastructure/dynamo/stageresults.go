package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/veriflow/orchestrator/internal/domain"
)

// StageResultRepo provides typed DynamoDB operations for the stage results
// table. Results are append-only: there is no update or delete path, which
// preserves the audit trail behind every decision.
type StageResultRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewStageResultRepo(client *dynamodb.Client, tableName string) *StageResultRepo {
	return &StageResultRepo{client: client, tableName: tableName}
}

func (r *StageResultRepo) Put(ctx context.Context, sr *domain.StageResult) error {
	item, err := attributevalue.MarshalMap(sr)
	if err != nil {
		return fmt.Errorf("marshal stage result: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(result_id)"),
	})
	return err
}

// ListBySession returns all stage results of a session, oldest first, via the
// session_id-processed_at GSI.
func (r *StageResultRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.StageResult, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("session_id-processed_at-index"),
		KeyConditionExpression: aws.String("session_id = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: sessionID},
		},
	})
	if err != nil {
		return nil, err
	}
	var results []domain.StageResult
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &results); err != nil {
		return nil, err
	}
	return results, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"artifact-chat/internal/domain"
)

const (
	skPrefixMsg = "MSG#"
	ttlDuration = 30 * 24 * time.Hour // 30-day TTL

	// sortableTime keeps a fixed width so SK ordering matches time ordering.
	sortableTime = "2006-01-02T15:04:05.000000000Z"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client stores chat history in a single DynamoDB table, one partition per
// (user, artifact) pair.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

// chatPK returns the partition key for a user's conversation with an artifact.
// Components are escaped so '#' inside an id cannot collide with the separator.
func chatPK(userID, artifactID string) string {
	return "CHAT#" + url.QueryEscape(userID) + "#" + url.QueryEscape(artifactID)
}

func msgSK(ts time.Time, seq int) string {
	return skPrefixMsg + ts.UTC().Format(sortableTime) + "#" + strconv.Itoa(seq)
}

// GetHistory returns up to limit of the most recent messages, oldest first.
func (c *Client) GetHistory(ctx context.Context, userID, artifactID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: chatPK(userID, artifactID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixMsg},
		},
		// Read newest first so LIMIT favors the most recent context.
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}

	out, err := c.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: GetHistory query: %w", err)
	}
	if out == nil {
		return nil, nil
	}

	msgs := make([]domain.Message, 0, len(out.Items))
	for _, item := range out.Items {
		msg, err := itemToMessage(item)
		if err != nil {
			return nil, fmt.Errorf("repository: GetHistory unmarshal: %w", err)
		}
		msg.UserID = userID
		msg.ArtifactID = artifactID
		msgs = append(msgs, msg)
	}
	reverse(msgs)
	return msgs, nil
}

// SaveExchange writes the user message and the assistant reply in one transaction.
func (c *Client) SaveExchange(ctx context.Context, userID, artifactID, question, answer string) error {
	now := c.now().UTC()
	pk := chatPK(userID, artifactID)
	ttl := now.Add(ttlDuration).Unix()

	put := func(seq int, role, content string) types.TransactWriteItem {
		return types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(c.tableName),
				Item: messageItem(pk, msgSK(now, seq), ttl, domain.Message{
					UserID:     userID,
					ArtifactID: artifactID,
					Role:       role,
					Content:    content,
					Timestamp:  now,
				}),
				ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
			},
		}
	}

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			put(0, domain.RoleUser, question),
			put(1, domain.RoleAssistant, answer),
		},
	})
	if err != nil {
		return fmt.Errorf("repository: SaveExchange: %w", err)
	}
	return nil
}

func itemToMessage(item map[string]types.AttributeValue) (domain.Message, error) {
	role, err := strAttr(item, "role")
	if err != nil {
		return domain.Message{}, err
	}
	content, err := strAttr(item, "content")
	if err != nil {
		return domain.Message{}, err
	}
	msg := domain.Message{Role: role, Content: content}
	if ts, err := strAttr(item, "timestamp"); err == nil {
		if parsed, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
			msg.Timestamp = parsed
		}
	}
	return msg, nil
}

func messageItem(pk, sk string, ttl int64, msg domain.Message) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: pk},
		"SK":         &types.AttributeValueMemberS{Value: sk},
		"userId":     &types.AttributeValueMemberS{Value: msg.UserID},
		"artifactId": &types.AttributeValueMemberS{Value: msg.ArtifactID},
		"role":       &types.AttributeValueMemberS{Value: msg.Role},
		"content":    &types.AttributeValueMemberS{Value: msg.Content},
		"timestamp":  &types.AttributeValueMemberS{Value: msg.Timestamp.UTC().Format(time.RFC3339Nano)},
		"ttl":        &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)},
	}
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func reverse(msgs []domain.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

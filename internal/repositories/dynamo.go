package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/achieve/internal/models"
	"github.com/desertthunder/achieve/internal/services"
	"github.com/desertthunder/achieve/internal/shared"
)

const (
	AccountTable     = "Achieve_Account"
	AchievementTable = "Achieve_Achievements"

	provisionedCapacity = 10
)

// DynamoRepository stores achievements and accounts in DynamoDB.
type DynamoRepository struct {
	client services.DynamoDBClient
	logger *log.Logger
}

// NewDynamoRepository creates a repository over client. A nil logger writes to stderr.
func NewDynamoRepository(client services.DynamoDBClient, logger *log.Logger) *DynamoRepository {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &DynamoRepository{client: client, logger: logger}
}

func achievementKey(key models.AchievementKey) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(key)
}

// GetAchievement returns [shared.ErrAchievementNotFound] when no item has the key.
func (r *DynamoRepository) GetAchievement(ctx context.Context, key models.AchievementKey) (*models.Achievement, error) {
	k, err := achievementKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(AchievementTable),
		Key:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get achievement %s: %w", key, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrAchievementNotFound, key)
	}

	var a models.Achievement
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal achievement: %w", err)
	}
	return &a, nil
}

// CreateAchievement puts the item unconditionally. Callers check uniqueness first.
func (r *DynamoRepository) CreateAchievement(ctx context.Context, a *models.Achievement) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("failed to marshal achievement: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(AchievementTable),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to put achievement %s: %w", a.Key(), err)
	}
	return nil
}

func (r *DynamoRepository) DeleteAchievement(ctx context.Context, key models.AchievementKey) error {
	k, err := achievementKey(key)
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(AchievementTable),
		Key:                      k,
		ConditionExpression:      aws.String("attribute_exists(#t)"),
		ExpressionAttributeNames: map[string]string{"#t": "title"},
	})
	return r.mapConditionErr(err, "delete", key)
}

func (r *DynamoRepository) ScanProgress(ctx context.Context) ([]models.Achievement, error) {
	return r.scanAchievements(ctx, &dynamodb.ScanInput{
		TableName:            aws.String(AchievementTable),
		ProjectionExpression: aws.String("#c, #cp, #mp"),
		ExpressionAttributeNames: map[string]string{
			"#c":  "category",
			"#cp": "currentProg",
			"#mp": "maxProg",
		},
	})
}

func (r *DynamoRepository) ListByCategory(ctx context.Context, category string) ([]models.Achievement, error) {
	achievements, err := r.scanAchievements(ctx, &dynamodb.ScanInput{
		TableName:                 aws.String(AchievementTable),
		FilterExpression:          aws.String("#c = :c"),
		ExpressionAttributeNames:  map[string]string{"#c": "category"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":c": &types.AttributeValueMemberS{Value: category}},
	})
	if err != nil {
		return nil, err
	}
	models.SortAchievements(achievements)
	return achievements, nil
}

func (r *DynamoRepository) CategoryKeys(ctx context.Context, category string) ([]models.AchievementKey, error) {
	return r.scanKeys(ctx, &dynamodb.ScanInput{
		TableName:                 aws.String(AchievementTable),
		FilterExpression:          aws.String("#c = :c"),
		ProjectionExpression:      aws.String("#t, #c"),
		ExpressionAttributeNames:  map[string]string{"#t": "title", "#c": "category"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":c": &types.AttributeValueMemberS{Value: category}},
	})
}

func (r *DynamoRepository) ListWithoutImage(ctx context.Context) ([]models.AchievementKey, error) {
	return r.scanKeys(ctx, &dynamodb.ScanInput{
		TableName:                 aws.String(AchievementTable),
		FilterExpression:          aws.String("#i = :i"),
		ProjectionExpression:      aws.String("#t, #c"),
		ExpressionAttributeNames:  map[string]string{"#t": "title", "#c": "category", "#i": "imageURL"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":i": &types.AttributeValueMemberS{Value: models.NoImage}},
	})
}

func (r *DynamoRepository) UpdateImage(ctx context.Context, key models.AchievementKey, url string) error {
	return r.update(ctx, key, "#i", "imageURL", &types.AttributeValueMemberS{Value: url})
}

func (r *DynamoRepository) UpdateProgress(ctx context.Context, key models.AchievementKey, current int) error {
	return r.update(ctx, key, "#cp", "currentProg", &types.AttributeValueMemberN{Value: strconv.Itoa(current)})
}

// update sets one attribute on an existing item.
func (r *DynamoRepository) update(ctx context.Context, key models.AchievementKey, placeholder, attr string, value types.AttributeValue) error {
	k, err := achievementKey(key)
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(AchievementTable),
		Key:                       k,
		UpdateExpression:          aws.String(fmt.Sprintf("SET %s = :v", placeholder)),
		ConditionExpression:       aws.String("attribute_exists(#t)"),
		ExpressionAttributeNames:  map[string]string{"#t": "title", placeholder: attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": value},
	})
	return r.mapConditionErr(err, "update "+attr+" of", key)
}

func (r *DynamoRepository) mapConditionErr(err error, op string, key models.AchievementKey) error {
	if err == nil {
		return nil
	}

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w: %s", shared.ErrAchievementNotFound, key)
	}
	return fmt.Errorf("failed to %s achievement %s: %w", op, key, err)
}

// scan follows LastEvaluatedKey until the table is exhausted.
func (r *DynamoRepository) scan(ctx context.Context, input *dynamodb.ScanInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	pages := 0

	p := dynamodb.NewScanPaginator(r.client, input)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", aws.ToString(input.TableName), err)
		}
		items = append(items, out.Items...)
		pages++
	}

	r.logger.Debug("scanned table", "table", aws.ToString(input.TableName), "pages", pages, "items", len(items))
	return items, nil
}

func (r *DynamoRepository) scanAchievements(ctx context.Context, input *dynamodb.ScanInput) ([]models.Achievement, error) {
	items, err := r.scan(ctx, input)
	if err != nil {
		return nil, err
	}

	var achievements []models.Achievement
	if err := attributevalue.UnmarshalListOfMaps(items, &achievements); err != nil {
		return nil, fmt.Errorf("failed to unmarshal achievements: %w", err)
	}
	return achievements, nil
}

func (r *DynamoRepository) scanKeys(ctx context.Context, input *dynamodb.ScanInput) ([]models.AchievementKey, error) {
	items, err := r.scan(ctx, input)
	if err != nil {
		return nil, err
	}

	var keys []models.AchievementKey
	if err := attributevalue.UnmarshalListOfMaps(items, &keys); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keys: %w", err)
	}
	models.SortKeys(keys)
	return keys, nil
}

// GetAccount returns [shared.ErrAccountNotFound] when the username is unknown.
func (r *DynamoRepository) GetAccount(ctx context.Context, username string) (*models.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(AccountTable),
		Key:       map[string]types.AttributeValue{"username": &types.AttributeValueMemberS{Value: username}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", username, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, username)
	}

	var a models.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return &a, nil
}

func (r *DynamoRepository) CreateAccount(ctx context.Context, a *models.Account) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(AccountTable),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to put account %s: %w", a.Username, err)
	}
	return nil
}

// TableResult reports the outcome of creating one table.
type TableResult struct {
	Table   string `json:"table"`
	Created bool   `json:"created"`
	Existed bool   `json:"existed"`
	Err     error  `json:"-"`
}

// CreateTables creates the account and achievement tables with 10/10 provisioned throughput and waits up to
// maxWait for each to become ACTIVE. A table that already exists is not an error.
func (r *DynamoRepository) CreateTables(ctx context.Context, maxWait time.Duration) []TableResult {
	specs := []struct {
		name string
		keys []types.KeySchemaElement
		defs []types.AttributeDefinition
	}{
		{
			name: AccountTable,
			keys: []types.KeySchemaElement{{AttributeName: aws.String("username"), KeyType: types.KeyTypeHash}},
			defs: []types.AttributeDefinition{{AttributeName: aws.String("username"), AttributeType: types.ScalarAttributeTypeS}},
		},
		{
			name: AchievementTable,
			keys: []types.KeySchemaElement{
				{AttributeName: aws.String("title"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("category"), KeyType: types.KeyTypeRange},
			},
			defs: []types.AttributeDefinition{
				{AttributeName: aws.String("title"), AttributeType: types.ScalarAttributeTypeS},
				{AttributeName: aws.String("category"), AttributeType: types.ScalarAttributeTypeS},
			},
		},
	}

	if maxWait <= 0 {
		maxWait = 5 * time.Minute
	}

	waiter := dynamodb.NewTableExistsWaiter(r.client)
	results := make([]TableResult, 0, len(specs))

	for _, table := range specs {
		result := TableResult{Table: table.name}

		_, err := r.client.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName:            aws.String(table.name),
			KeySchema:            table.keys,
			AttributeDefinitions: table.defs,
			ProvisionedThroughput: &types.ProvisionedThroughput{
				ReadCapacityUnits:  aws.Int64(provisionedCapacity),
				WriteCapacityUnits: aws.Int64(provisionedCapacity),
			},
		})

		var inUse *types.ResourceInUseException
		switch {
		case errors.As(err, &inUse):
			result.Existed = true
		case err != nil:
			result.Err = fmt.Errorf("failed to create table %s: %w", table.name, err)
			results = append(results, result)
			r.logger.Error("create table failed", "table", table.name, "error", err)
			continue
		default:
			result.Created = true
		}

		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table.name)}, maxWait); err != nil {
			result.Err = fmt.Errorf("%w: table %s did not become active: %v", shared.ErrTimeout, table.name, err)
			r.logger.Error("table not active", "table", table.name, "error", err)
		} else {
			r.logger.Info("table active", "table", table.name, "created", result.Created)
		}
		results = append(results, result)
	}
	return results
}

package testing

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// FakeDynamoDB is an in-memory implementation of the DynamoDB client subset used by the remote store.
//
// It understands the expression shapes the store sends: equality filters joined by AND, comma separated
// projections, "SET a = :v" updates and attribute_exists/attribute_not_exists conditions.
type FakeDynamoDB struct {
	mu     sync.Mutex
	tables map[string]*fakeTable

	// PageSize caps the items evaluated per Scan call so pagination is exercised. 0 means unlimited.
	PageSize int

	// Errors are returned by the named operation ("Scan", "DeleteItem", ...) instead of running it.
	Errors map[string]error

	// DeleteHook, when set, can veto individual deletes.
	DeleteHook func(key map[string]types.AttributeValue) error

	Calls map[string]int
}

type fakeTable struct {
	keys  []string
	items map[string]map[string]types.AttributeValue
}

func NewFakeDynamoDB() *FakeDynamoDB {
	return &FakeDynamoDB{
		tables: make(map[string]*fakeTable),
		Errors: make(map[string]error),
		Calls:  make(map[string]int),
	}
}

// WithTable registers a table with the given hash (and optional range) key.
func (f *FakeDynamoDB) WithTable(name string, keys ...string) *FakeDynamoDB {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[name] = &fakeTable{keys: keys, items: make(map[string]map[string]types.AttributeValue)}
	return f
}

// Len returns the number of items in a table.
func (f *FakeDynamoDB) Len(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tables[table]; ok {
		return len(t.items)
	}
	return 0
}

func (f *FakeDynamoDB) begin(op, table string) (*fakeTable, error) {
	f.Calls[op]++
	if err := f.Errors[op]; err != nil {
		return nil, err
	}
	t, ok := f.tables[table]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found: " + table)}
	}
	return t, nil
}

func (t *fakeTable) keyOf(item map[string]types.AttributeValue) (string, error) {
	parts := make([]string, 0, len(t.keys))
	for _, k := range t.keys {
		v, ok := item[k]
		if !ok {
			return "", fmt.Errorf("ValidationException: missing key attribute %s", k)
		}
		parts = append(parts, k+"="+avString(v))
	}
	return strings.Join(parts, "#"), nil
}

func (f *FakeDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.begin("GetItem", aws.ToString(params.TableName))
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(params.Key)
	if err != nil {
		return nil, err
	}

	item, ok := t.items[k]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: project(item, params.ProjectionExpression, params.ExpressionAttributeNames)}, nil
}

func (f *FakeDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.begin("PutItem", aws.ToString(params.TableName))
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(params.Item)
	if err != nil {
		return nil, err
	}

	if !evaluate(t.items[k], params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	t.items[k] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *FakeDynamoDB) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.begin("DeleteItem", aws.ToString(params.TableName))
	if err != nil {
		return nil, err
	}
	if f.DeleteHook != nil {
		if err := f.DeleteHook(params.Key); err != nil {
			return nil, err
		}
	}
	k, err := t.keyOf(params.Key)
	if err != nil {
		return nil, err
	}

	if !evaluate(t.items[k], params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	delete(t.items, k)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *FakeDynamoDB) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.begin("UpdateItem", aws.ToString(params.TableName))
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(params.Key)
	if err != nil {
		return nil, err
	}

	item := t.items[k]
	if !evaluate(item, params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	if item == nil {
		item = copyItem(params.Key)
	}

	expr := strings.TrimSpace(aws.ToString(params.UpdateExpression))
	if !strings.HasPrefix(strings.ToUpper(expr), "SET ") {
		return nil, fmt.Errorf("ValidationException: unsupported update expression %q", expr)
	}
	for _, assignment := range strings.Split(expr[4:], ",") {
		lhs, rhs, ok := strings.Cut(assignment, "=")
		if !ok {
			return nil, fmt.Errorf("ValidationException: invalid assignment %q", assignment)
		}
		name := resolveName(strings.TrimSpace(lhs), params.ExpressionAttributeNames)
		v, ok := params.ExpressionAttributeValues[strings.TrimSpace(rhs)]
		if !ok {
			return nil, fmt.Errorf("ValidationException: missing value %s", strings.TrimSpace(rhs))
		}
		item[name] = v
	}
	t.items[k] = item
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *FakeDynamoDB) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.begin("Scan", aws.ToString(params.TableName))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if params.ExclusiveStartKey != nil {
		after, err := t.keyOf(params.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}
		start = sort.SearchStrings(keys, after)
		if start < len(keys) && keys[start] == after {
			start++
		}
	}

	limit := len(keys) - start
	if params.Limit != nil && int(*params.Limit) < limit {
		limit = int(*params.Limit)
	}
	if f.PageSize > 0 && f.PageSize < limit {
		limit = f.PageSize
	}

	out := &dynamodb.ScanOutput{}
	for _, k := range keys[start : start+limit] {
		item := t.items[k]
		out.ScannedCount++
		if !evaluate(item, params.FilterExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
			continue
		}
		out.Items = append(out.Items, project(item, params.ProjectionExpression, params.ExpressionAttributeNames))
		out.Count++
	}

	if start+limit < len(keys) {
		last := t.items[keys[start+limit-1]]
		out.LastEvaluatedKey = make(map[string]types.AttributeValue, len(t.keys))
		for _, k := range t.keys {
			out.LastEvaluatedKey[k] = last[k]
		}
	}
	return out, nil
}

func (f *FakeDynamoDB) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls["CreateTable"]++
	if err := f.Errors["CreateTable"]; err != nil {
		return nil, err
	}

	name := aws.ToString(params.TableName)
	if _, exists := f.tables[name]; exists {
		return nil, &types.ResourceInUseException{Message: aws.String("table already exists: " + name)}
	}

	keys := make([]string, len(params.KeySchema))
	for _, ks := range params.KeySchema {
		if ks.KeyType == types.KeyTypeHash {
			keys[0] = aws.ToString(ks.AttributeName)
		} else if len(keys) > 1 {
			keys[1] = aws.ToString(ks.AttributeName)
		}
	}
	f.tables[name] = &fakeTable{keys: keys, items: make(map[string]map[string]types.AttributeValue)}

	return &dynamodb.CreateTableOutput{TableDescription: &types.TableDescription{
		TableName:   aws.String(name),
		TableStatus: types.TableStatusCreating,
		KeySchema:   params.KeySchema,
	}}, nil
}

func (f *FakeDynamoDB) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.begin("DescribeTable", aws.ToString(params.TableName)); err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   params.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}

// evaluate checks a condition or filter expression against item. An empty expression always matches.
func evaluate(item map[string]types.AttributeValue, expr *string, names map[string]string, values map[string]types.AttributeValue) bool {
	e := strings.TrimSpace(aws.ToString(expr))
	if e == "" {
		return true
	}

	for _, term := range strings.Split(e, " AND ") {
		term = strings.Trim(strings.TrimSpace(term), "()")
		switch {
		case strings.HasPrefix(term, "attribute_exists"):
			name := resolveName(fnArg(term), names)
			if _, ok := item[name]; !ok {
				return false
			}
		case strings.HasPrefix(term, "attribute_not_exists"):
			name := resolveName(fnArg(term), names)
			if _, ok := item[name]; ok {
				return false
			}
		default:
			lhs, rhs, ok := strings.Cut(term, "=")
			if !ok {
				return false
			}
			got, ok := item[resolveName(strings.TrimSpace(lhs), names)]
			if !ok {
				return false
			}
			if avString(got) != avString(values[strings.TrimSpace(rhs)]) {
				return false
			}
		}
	}
	return true
}

func fnArg(term string) string {
	open := strings.Index(term, "(")
	if open < 0 {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(term[open+1:], ")"))
}

func resolveName(token string, names map[string]string) string {
	if strings.HasPrefix(token, "#") {
		if n, ok := names[token]; ok {
			return n
		}
	}
	return token
}

func project(item map[string]types.AttributeValue, expr *string, names map[string]string) map[string]types.AttributeValue {
	if aws.ToString(expr) == "" {
		return copyItem(item)
	}

	out := make(map[string]types.AttributeValue)
	for _, token := range strings.Split(aws.ToString(expr), ",") {
		name := resolveName(strings.TrimSpace(token), names)
		if v, ok := item[name]; ok {
			out[name] = v
		}
	}
	return out
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func avString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + v.Value
	case *types.AttributeValueMemberN:
		return "N:" + v.Value
	case *types.AttributeValueMemberBOOL:
		return "B:" + strconv.FormatBool(v.Value)
	default:
		return ""
	}
}

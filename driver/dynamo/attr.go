package dynamo

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/docstore/driver"
	"github.com/jacentio/docstore/filter"
)

// EncodeValue converts a wire value to a DynamoDB attribute value.
func EncodeValue(v any) (types.AttributeValue, error) {
	switch x := filter.Normalize(v).(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: x}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: x}, nil
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(x, 10)}, nil
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(x, 'g', -1, 64)}, nil
	default:
		av, err := attributevalue.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("marshal %T: %w", x, err)
		}
		return av, nil
	}
}

// EncodeItem converts a record to a DynamoDB item.
func EncodeItem(rec driver.Record) (map[string]types.AttributeValue, error) {
	item := make(map[string]types.AttributeValue, len(rec))
	for k, v := range rec {
		av, err := EncodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		item[k] = av
	}
	return item, nil
}

// DecodeValue converts a DynamoDB attribute value to a wire value.
// Numbers decode to int64 when integral, float64 otherwise.
func DecodeValue(av types.AttributeValue) (any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value, nil
	case *types.AttributeValueMemberN:
		return parseNumber(v.Value)
	case *types.AttributeValueMemberBOOL:
		return v.Value, nil
	case *types.AttributeValueMemberNULL:
		return nil, nil
	default:
		var out any
		if err := attributevalue.Unmarshal(av, &out); err != nil {
			return nil, fmt.Errorf("unmarshal %T: %w", av, err)
		}
		return out, nil
	}
}

// DecodeItem converts a DynamoDB item to a record.
func DecodeItem(item map[string]types.AttributeValue) (driver.Record, error) {
	rec := make(driver.Record, len(item))
	for k, av := range item {
		v, err := DecodeValue(av)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		rec[k] = v
	}
	return rec, nil
}

func parseNumber(s string) (any, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("parse number %q: %w", s, err)
	}
	return f, nil
}

package stream

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/docstore/driver"
	"github.com/jacentio/docstore/filter"
)

// ImageRecord converts a DynamoDB stream image to a wire record. Scalar
// attributes are converted the same way the dynamodb driver decodes items;
// list and map attributes are skipped. A nil or empty image yields nil.
func ImageRecord(image map[string]events.DynamoDBAttributeValue) (driver.Record, error) {
	if len(image) == 0 {
		return nil, nil
	}
	rec := make(driver.Record, len(image))
	for k, v := range image {
		val, ok, err := attrValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		if ok {
			rec[k] = val
		}
	}
	return rec, nil
}

// attrValue returns the wire value of a scalar stream attribute.
func attrValue(v events.DynamoDBAttributeValue) (any, bool, error) {
	switch v.DataType() {
	case events.DataTypeString:
		return v.String(), true, nil
	case events.DataTypeNumber:
		n := filter.Normalize(json.Number(v.Number()))
		if _, invalid := n.(string); invalid {
			return nil, false, fmt.Errorf("invalid number %q", v.Number())
		}
		return n, true, nil
	case events.DataTypeBoolean:
		return v.Boolean(), true, nil
	case events.DataTypeNull:
		return nil, true, nil
	}
	return nil, false, nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

package stream

import (
	"reflect"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/docstore/driver"
)

// --- getStringAttr Tests ---

func TestGetStringAttr_ExistingString(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"id": events.NewStringAttribute("test-value"),
	}

	result := getStringAttr(image, "id")
	if result != "test-value" {
		t.Errorf("expected 'test-value', got %q", result)
	}
}

func TestGetStringAttr_MissingKey(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"other": events.NewStringAttribute("value"),
	}

	result := getStringAttr(image, "id")
	if result != "" {
		t.Errorf("expected empty string for missing key, got %q", result)
	}
}

func TestGetStringAttr_NilImage(t *testing.T) {
	var image map[string]events.DynamoDBAttributeValue

	result := getStringAttr(image, "id")
	if result != "" {
		t.Errorf("expected empty string for nil image, got %q", result)
	}
}

func TestGetStringAttr_NumberAttribute(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"id": events.NewNumberAttribute("42"),
	}

	result := getStringAttr(image, "id")
	if result != "" {
		t.Errorf("expected empty string for number attribute, got %q", result)
	}
}

// --- ImageRecord Tests ---

func TestImageRecord_Scalars(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"id":  events.NewStringAttribute("abc"),
		"nm":  events.NewStringAttribute("Ann"),
		"ag":  events.NewNumberAttribute("30"),
		"sc":  events.NewNumberAttribute("1.5"),
		"on":  events.NewBooleanAttribute(true),
		"nil": events.NewNullAttribute(),
		"tags": events.NewListAttribute([]events.DynamoDBAttributeValue{
			events.NewStringAttribute("x"),
		}),
	}

	rec, err := ImageRecord(image)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := driver.Record{
		"id":  "abc",
		"nm":  "Ann",
		"ag":  int64(30),
		"sc":  1.5,
		"on":  true,
		"nil": nil,
	}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("expected %v, got %v", want, rec)
	}
}

func TestImageRecord_Empty(t *testing.T) {
	rec, err := ImageRecord(nil)
	if err != nil || rec != nil {
		t.Errorf("expected nil record, got %v, %v", rec, err)
	}
}

func TestImageRecord_InvalidNumber(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"ag": events.NewNumberAttribute("thirty"),
	}

	if _, err := ImageRecord(image); err == nil {
		t.Error("expected error for invalid number")
	}
}

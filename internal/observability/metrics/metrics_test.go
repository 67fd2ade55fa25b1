package metrics

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("package_type", "FREE"),
		attribute.String("user_id", "123"),
		attribute.String("session_time", "MORNING"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "user_id" {
			t.Fatalf("expected user_id to be dropped")
		}
	}
}

func TestFilterAttributesKeepsKnownLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("endpoint", "/v1/registrations"),
		attribute.String("status_code", "200"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
}

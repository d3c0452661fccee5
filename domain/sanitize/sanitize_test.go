package sanitize_test

import (
	"reflect"
	"testing"

	"github.com/pulseproto/pulsegate/domain/sanitize"
)

func TestParams_RedactsSensitiveKeys(t *testing.T) {
	params := map[string]any{
		"text":     "hello",
		"api_key":  "sk-12345",
		"password": "hunter2",
		"count":    3,
	}

	got := sanitize.Params(params)

	if got["api_key"] != sanitize.Marker {
		t.Errorf("api_key = %v, want marker", got["api_key"])
	}
	if got["password"] != sanitize.Marker {
		t.Errorf("password = %v, want marker", got["password"])
	}
	if got["text"] != "hello" || got["count"] != 3 {
		t.Errorf("non-sensitive values altered: %v", got)
	}
}

func TestParams_CaseInsensitive(t *testing.T) {
	got := sanitize.Params(map[string]any{"API_KEY": "x", "Token": "y"})

	if got["API_KEY"] != sanitize.Marker || got["Token"] != sanitize.Marker {
		t.Errorf("case variants not redacted: %v", got)
	}
}

func TestParams_RecursesIntoNestedMaps(t *testing.T) {
	params := map[string]any{
		"config": map[string]any{
			"secret": "deep",
			"inner": map[string]any{
				"access_token": "deeper",
				"region":       "eu-west-1",
			},
		},
	}

	got := sanitize.Params(params)

	config := got["config"].(map[string]any)
	if config["secret"] != sanitize.Marker {
		t.Error("nested secret not redacted")
	}
	inner := config["inner"].(map[string]any)
	if inner["access_token"] != sanitize.Marker {
		t.Error("deeply nested token not redacted")
	}
	if inner["region"] != "eu-west-1" {
		t.Error("deeply nested safe value altered")
	}
}

func TestParams_LeavesCleanMapsUntouched(t *testing.T) {
	params := map[string]any{
		"text": "hi",
		"opts": map[string]any{"model": "large", "depth": map[string]any{"n": 2}},
		"list": []any{"a", map[string]any{"password": "inside-a-list"}},
	}

	got := sanitize.Params(params)

	// Lists are not mappings: their contents pass through unchanged.
	if !reflect.DeepEqual(got, params) {
		t.Errorf("clean params altered:\ngot  %v\nwant %v", got, params)
	}
}

func TestParams_Idempotent(t *testing.T) {
	params := map[string]any{
		"token": "abc",
		"sub":   map[string]any{"credentials": "xyz", "ok": true},
		"text":  "fine",
	}

	once := sanitize.Params(params)
	twice := sanitize.Params(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("sanitize not idempotent:\nonce  %v\ntwice %v", once, twice)
	}
}

func TestParams_DoesNotMutateInput(t *testing.T) {
	params := map[string]any{"secret": "original"}

	sanitize.Params(params)

	if params["secret"] != "original" {
		t.Error("input map was mutated")
	}
}

func TestParams_Nil(t *testing.T) {
	if got := sanitize.Params(nil); got != nil {
		t.Errorf("Params(nil) = %v, want nil", got)
	}
}

func TestIsSensitive(t *testing.T) {
	for _, key := range []string{"api_key", "Authorization", "PASSPHRASE", "private_key"} {
		if !sanitize.IsSensitive(key) {
			t.Errorf("IsSensitive(%q) = false, want true", key)
		}
	}
	for _, key := range []string{"text", "user", "keyboard", "tokens"} {
		if sanitize.IsSensitive(key) {
			t.Errorf("IsSensitive(%q) = true, want false", key)
		}
	}
}

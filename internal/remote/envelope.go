package remote

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

type v2Error struct {
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
}

// decodeEnvelope picks the envelope convention from the body shape: a "code"
// key means V1, otherwise an "error" key means V2.
func decodeEnvelope(status int, body []byte, out any) error {
	ok := status >= 200 && status < 300

	if len(bytes.TrimSpace(body)) == 0 {
		if ok {
			return nil
		}
		return statusError(status)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		if !ok {
			return statusError(status)
		}
		return fmt.Errorf("decode response body: %w", err)
	}

	if raw, found := fields["code"]; found {
		return decodeV1(status, raw, fields, out)
	}
	if raw, found := fields["error"]; found {
		return decodeV2(status, raw, fields, out)
	}
	return &Error{HTTPStatus: status, Message: unknownMessage}
}

func decodeV1(status int, rawCode json.RawMessage, fields map[string]json.RawMessage, out any) error {
	code, _ := parseCode(rawCode)
	if code == successCode {
		return decodeData(fields["data"], out)
	}
	var msg string
	if raw, found := fields["message"]; found {
		_ = json.Unmarshal(raw, &msg)
	}
	return newError(status, code, msg)
}

func decodeV2(status int, rawErr json.RawMessage, fields map[string]json.RawMessage, out any) error {
	if isNull(rawErr) {
		if status < 200 || status >= 300 {
			return &Error{HTTPStatus: status, Message: unknownMessage}
		}
		return decodeData(fields["data"], out)
	}

	var e v2Error
	if err := json.Unmarshal(rawErr, &e); err != nil {
		return &Error{HTTPStatus: status, Message: unknownMessage}
	}
	code, _ := parseCode(e.Code)
	return newError(status, code, e.Message)
}

func decodeData(raw json.RawMessage, out any) error {
	if out == nil || isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// parseCode accepts numeric codes and numeric strings.
func parseCode(raw json.RawMessage) (int64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

package audio

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeDataURL extracts the binary payload from a base64 data URL of the
// form data:<mime>;base64,<payload>.
func DecodeDataURL(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, fmt.Errorf("not a data URL")
	}
	idx := strings.Index(dataURL, ";base64,")
	if idx < 0 {
		return nil, fmt.Errorf("data URL is not base64 encoded")
	}
	payload, err := base64.StdEncoding.DecodeString(dataURL[idx+len(";base64,"):])
	if err != nil {
		return nil, fmt.Errorf("decode data URL payload: %w", err)
	}
	return payload, nil
}

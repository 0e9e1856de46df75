package sheets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"sheets_join/internal/errors"

	"github.com/rs/zerolog/log"
)

// CredentialsEnv carries a service account JSON blob, preferred over a file.
const CredentialsEnv = "GOOGLE_CREDENTIALS_JSON"

// Credentials is a service account key in JSON form.
type Credentials struct {
	JSON []byte
	// Identity is the service account e-mail (client_email).
	Identity string
	// Source describes where the key came from, for logs.
	Source string
}

type serviceAccountKey struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
}

// LoadCredentials resolves credentials from blob when it is non-empty,
// otherwise from the file at path.
func LoadCredentials(blob, path string) (*Credentials, error) {
	if blob != "" {
		log.Info().Msgf("Using credentials from environment variable %s", CredentialsEnv)
		return ParseCredentials([]byte(blob), "env:"+CredentialsEnv)
	}

	if path == "" {
		return nil, errors.NewCredentialError("load credentials",
			fmt.Errorf("set %s or provide a credentials file", CredentialsEnv))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewCredentialError("load credentials",
			fmt.Errorf("credentials file %s not readable (set %s or place the file there): %w", path, CredentialsEnv, err))
	}
	log.Info().Str("path", path).Msg("Using credentials from file")
	return ParseCredentials(data, "file:"+path)
}

// ParseCredentials validates a service account key and extracts its identity.
func ParseCredentials(data []byte, source string) (*Credentials, error) {
	var key serviceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, errors.NewCredentialError("parse credentials", fmt.Errorf("invalid JSON in %s: %w", source, err))
	}
	if key.Type != "" && key.Type != "service_account" {
		return nil, errors.NewCredentialError("parse credentials",
			fmt.Errorf("%s holds %q credentials, want service_account", source, key.Type))
	}
	return &Credentials{JSON: data, Identity: key.ClientEmail, Source: source}, nil
}

// CompactCredentials validates a service account key and returns it as a
// single line of JSON, the form expected in GOOGLE_CREDENTIALS_JSON.
func CompactCredentials(data []byte, source string) ([]byte, error) {
	if _, err := ParseCredentials(data, source); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, errors.NewCredentialError("compact credentials", err)
	}
	return buf.Bytes(), nil
}

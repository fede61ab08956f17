package session

import (
	"encoding/json"
	"fmt"

	"github.com/erazemk/stockboard/internal/model"
)

// profileEnvelope is the stored form of a model.Profile.
type profileEnvelope struct {
	Kind   string         `json:"kind"`
	User   model.Identity `json:"user"`
	Source string         `json:"source,omitempty"`
}

func encodeProfile(p model.Profile) (string, error) {
	env := profileEnvelope{Kind: p.Kind(), User: p.Identity()}
	if inferred, ok := p.(model.InferredProfile); ok {
		env.Source = inferred.Source
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encoding profile: %w", err)
	}
	return string(data), nil
}

func decodeProfile(raw string) (model.Profile, error) {
	var env profileEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}

	switch env.Kind {
	case model.ProfileBackend:
		return model.BackendProfile{User: env.User}, nil
	case model.ProfileInferred:
		return model.InferredProfile{User: env.User, Source: env.Source}, nil
	default:
		return nil, fmt.Errorf("unknown profile kind %q", env.Kind)
	}
}

// forms-token signs a form definition document into the token the rendering
// layer embeds in a page. It is the offline counterpart of that collaborator:
// useful for wiring a form into a static site or for reproducing a token
// while debugging a submission.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tentapress/forms/internal/config"
	"github.com/tentapress/forms/pkg/field"
	"github.com/tentapress/forms/pkg/provider"
	"github.com/tentapress/forms/pkg/signer"
)

func main() {
	input := flag.String("input", "", "form definition document (.yaml, .yml or .json)")
	secret := flag.String("secret", "", "signing secret (defaults to the server configuration)")
	flag.Parse()

	if *input == "" {
		log.Fatal("an -input document is required")
	}

	payload, err := loadDefinition(*input)
	if err != nil {
		log.Fatalf("failed to load definition: %v", err)
	}

	defs := field.Normalize(payload["fields"])
	if len(defs) == 0 {
		log.Fatal("the definition has no usable fields")
	}
	payload["fields"] = defs
	payload["provider"] = provider.Normalize(payload["provider"])

	signingSecret := strings.TrimSpace(*secret)
	if signingSecret == "" {
		signingSecret = config.Load().Forms.SigningSecret
	}

	sig, err := signer.NewFromSecret(signingSecret)
	if err != nil {
		log.Fatalf("signing secret is not usable: %v", err)
	}

	token, err := sig.Sign(payload)
	if err != nil {
		log.Fatalf("failed to sign payload: %v", err)
	}

	fmt.Println(token)
}

func loadDefinition(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	}

	if err := yaml.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

package search

import (
	"strings"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/sieve/internal/config"
)

var Module = fx.Module("sieve.search",
	fx.Provide(NewClient, New),
)

// NewClient builds the OpenSearch client indexing depends on. A blank
// SearchHost yields a nil client, which New/Index treat as disabled —
// search indexing is optional in minimal environments.
func NewClient(cfg config.Config, log *zap.Logger) (*opensearch.Client, error) {
	host := strings.TrimSpace(cfg.SearchHost)
	if host == "" {
		return nil, nil
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{host},
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

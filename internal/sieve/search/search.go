// Package search provides best-effort indexing of invoice text for
// downstream lookup. Indexing happens outside the persistence transaction;
// failures are logged and never surfaced to the caller.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"go.uber.org/zap"
)

const indexName = "invoice_text"

// Document is the body indexed per invoice.
type Document struct {
	TenantID  string `json:"tenant_id"`
	VendorID  string `json:"vendor_id"`
	InvoiceID string `json:"invoice_id"`
	TextBlob  string `json:"text_blob"`
}

// Indexer wraps an OpenSearch client. A nil client makes Index a no-op,
// matching the source's "search is optional in minimal environments"
// behavior.
type Indexer struct {
	client *opensearch.Client
	log    *zap.Logger
}

func New(client *opensearch.Client, log *zap.Logger) *Indexer {
	return &Indexer{client: client, log: log}
}

// Index writes the document under "{tenant}:{invoice_id}". Errors are
// logged at warn level and swallowed.
func (ix *Indexer) Index(ctx context.Context, doc Document) {
	if ix == nil || ix.client == nil {
		return
	}

	body, err := json.Marshal(doc)
	if err != nil {
		ix.log.Warn("search index encode failed", zap.Error(err), zap.String("invoice_id", doc.InvoiceID))
		return
	}

	docID := fmt.Sprintf("%s:%s", doc.TenantID, doc.InvoiceID)
	req := opensearchapi.IndexRequest{
		Index:      indexName,
		DocumentID: docID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		ix.log.Warn("search index request failed", zap.Error(err), zap.String("invoice_id", doc.InvoiceID))
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		ix.log.Warn("search index returned error status", zap.String("status", res.Status()), zap.String("invoice_id", doc.InvoiceID))
	}
}

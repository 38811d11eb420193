// Package search mirrors the product catalog into Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/shop_api/internal/models"
)

const mapping = `{
  "mappings": {
    "properties": {
      "name":      {"type": "text"},
      "category":  {"type": "keyword"},
      "price":     {"type": "scaled_float", "scaling_factor": 100},
      "stock":     {"type": "integer"},
      "is_active": {"type": "boolean"}
    }
  }
}`

func NewClient(url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: new client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch: info: %s", res.Status())
	}
	return client, nil
}

type document struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    string `json:"price"`
	Stock    int    `json:"stock"`
	IsActive bool   `json:"is_active"`
}

type ProductIndex struct {
	ES    *elasticsearch.Client
	Index string
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (p *ProductIndex) EnsureIndex(ctx context.Context) error {
	res, err := p.ES.Indices.Exists([]string{p.Index}, p.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = p.ES.Indices.Create(p.Index,
		p.ES.Indices.Create.WithContext(ctx),
		p.ES.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res.Status(), res.Body)
	}
	return nil
}

// IndexProduct writes p under its id. Category must be loaded.
func (p *ProductIndex) IndexProduct(ctx context.Context, prod *models.Product) error {
	body, err := json.Marshal(document{
		Name:     prod.Name,
		Category: prod.Category.Name,
		Price:    prod.Price.StringFixed(2),
		Stock:    prod.Stock,
		IsActive: prod.IsActive,
	})
	if err != nil {
		return err
	}

	res, err := p.ES.Index(p.Index, bytes.NewReader(body),
		p.ES.Index.WithContext(ctx),
		p.ES.Index.WithDocumentID(strconv.FormatUint(uint64(prod.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: index product %d: %w", prod.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index product", res.Status(), res.Body)
	}
	return nil
}

// RemoveProducts deletes documents by product id. Missing documents are skipped.
func (p *ProductIndex) RemoveProducts(ctx context.Context, ids ...uint) error {
	for _, id := range ids {
		res, err := p.ES.Delete(p.Index, strconv.FormatUint(uint64(id), 10), p.ES.Delete.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("elasticsearch: delete product %d: %w", id, err)
		}
		if res.IsError() && res.StatusCode != http.StatusNotFound {
			err := responseError("delete product", res.Status(), res.Body)
			res.Body.Close()
			return err
		}
		res.Body.Close()
	}
	return nil
}

func responseError(op, status string, body io.Reader) error {
	msg, _ := io.ReadAll(io.LimitReader(body, 512))
	return fmt.Errorf("elasticsearch: %s: %s: %s", op, status, bytes.TrimSpace(msg))
}

// Nop is used when no Elasticsearch URL is configured.
type Nop struct{}

func (Nop) IndexProduct(context.Context, *models.Product) error { return nil }

func (Nop) RemoveProducts(context.Context, ...uint) error { return nil }

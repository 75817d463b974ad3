// Package pricing implements the pricing_lookup tool: a static catalog
// lookup the agent calls when a query asks about cost, fees, or plan
// pricing. The lookup is a pure in-memory match over a caller-supplied
// catalog; unlike internal/tools/websearch it makes no network calls.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/baliwise/ragcore/internal/tool"
)

// Item is one priced offering in the catalog.
type Item struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	PriceUSD    float64 `json:"price_usd"`
	Unit        string  `json:"unit"`
	Description string  `json:"description,omitempty"`
}

// Tool implements tool.Tool over an in-memory price catalog. The catalog is
// supplied by the caller (loaded from config or a database at startup); the
// tool itself only matches and formats.
type Tool struct {
	catalog []Item
}

// New creates a pricing_lookup tool over catalog.
func New(catalog []Item) *Tool {
	return &Tool{catalog: catalog}
}

func (t *Tool) Name() string { return "pricing_lookup" }

func (t *Tool) Description() string {
	return "Looks up prices, fees, or plan costs for named services or products from the current price catalog."
}

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "service_type": {"type": "string", "description": "Service category to price, e.g. visa, company, tax"},
    "query": {"type": "string", "description": "Optional keyword narrowing the lookup within the service type"}
  },
  "required": ["service_type"]
}`)
}

type input struct {
	ServiceType string `json:"service_type"`
	Query       string `json:"query,omitempty"`
}

func (t *Tool) Execute(_ context.Context, params json.RawMessage) (*tool.Result, error) {
	var in input
	if err := json.Unmarshal(params, &in); err != nil {
		return &tool.Result{Content: fmt.Sprintf("invalid params: %v", err), IsError: true}, nil
	}
	serviceType := strings.TrimSpace(strings.ToLower(in.ServiceType))
	if serviceType == "" {
		return &tool.Result{Content: "service_type is required", IsError: true}, nil
	}
	query := strings.TrimSpace(strings.ToLower(in.Query))

	var matches []Item
	for _, item := range t.catalog {
		if !strings.Contains(strings.ToLower(item.Category), serviceType) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(item.Name), query) && !strings.Contains(strings.ToLower(item.Description), query) {
			continue
		}
		matches = append(matches, item)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })

	if len(matches) == 0 {
		return &tool.Result{Content: fmt.Sprintf("no pricing found for service type %q", in.ServiceType)}, nil
	}

	payload, err := json.MarshalIndent(struct {
		ServiceType string `json:"service_type"`
		Matches     []Item `json:"matches"`
	}{ServiceType: in.ServiceType, Matches: matches}, "", "  ")
	if err != nil {
		return &tool.Result{Content: fmt.Sprintf("failed to format results: %v", err), IsError: true}, nil
	}
	return &tool.Result{Content: string(payload)}, nil
}

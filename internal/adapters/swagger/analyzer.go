// Package swagger normalizes machine-readable API specs. Swagger 2.0
// documents are converted to OpenAPI 3 so the walk below only needs one
// shape.
package swagger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/conexa/sdkforge/internal/core/domain"
	"github.com/conexa/sdkforge/internal/core/ports"
	"github.com/conexa/sdkforge/internal/heuristics"
	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

var methodOrder = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

type Analyzer struct {
	logger *slog.Logger
}

func NewAnalyzer(logger *slog.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// probeDocument parses raw as JSON first, then YAML, and requires a
// top-level swagger or openapi version key.
func probeDocument(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		if yerr := yaml.Unmarshal(raw, &doc); yerr != nil {
			return nil, fmt.Errorf("%w: not parseable as JSON or YAML", domain.ErrInvalidSpec)
		}
	}

	if _, ok := doc["openapi"]; ok {
		return doc, nil
	}
	if _, ok := doc["swagger"]; ok {
		return doc, nil
	}
	return nil, fmt.Errorf("%w: missing swagger/openapi version key", domain.ErrInvalidSpec)
}

// Normalize parses a Swagger/OpenAPI payload and flattens it into the
// analyzer's intermediate form.
func (a *Analyzer) Normalize(raw []byte, provider string) (domain.NormalizedDocument, error) {
	probe, err := probeDocument(raw)
	if err != nil {
		return domain.NormalizedDocument{}, err
	}

	var (
		doc     *openapi3.T
		version string
	)

	if v, ok := probe["openapi"].(string); ok {
		version = v
		loader := openapi3.NewLoader()
		doc, err = loader.LoadFromData(raw)
		if err != nil {
			return domain.NormalizedDocument{}, fmt.Errorf("%w: %v", domain.ErrInvalidSpec, err)
		}
	} else {
		version, _ = probe["swagger"].(string)
		doc, err = loadSwagger2(probe)
		if err != nil {
			return domain.NormalizedDocument{}, fmt.Errorf("%w: %v", domain.ErrInvalidSpec, err)
		}
	}

	endpoints := extractEndpoints(doc)
	auth := extractAuthentication(doc)

	normalized := domain.NormalizedDocument{
		Source:         domain.DocumentSourceSpec,
		Provider:       provider,
		SpecVersion:    version,
		Endpoints:      endpoints,
		Authentication: auth,
		ProviderHint:   inferProviderType(raw, endpoints),
	}

	if doc.Info != nil {
		normalized.Title = doc.Info.Title
	}
	if len(doc.Servers) > 0 {
		normalized.BaseURL = doc.Servers[0].URL
	}
	if doc.Components != nil {
		normalized.SchemaCount = len(doc.Components.Schemas)
	}

	a.logger.Info("spec normalized",
		"provider", provider,
		"version", version,
		"endpoints", len(endpoints),
		"auth", auth.Type,
	)

	return normalized, nil
}

// loadSwagger2 round-trips the probed document through JSON into the 2.0
// model and converts it to OpenAPI 3. The probe map (not the raw bytes) is
// marshalled so YAML input needs no separate path.
func loadSwagger2(probe map[string]any) (*openapi3.T, error) {
	jsonBytes, err := json.Marshal(probe)
	if err != nil {
		return nil, err
	}

	var doc2 openapi2.T
	if err := json.Unmarshal(jsonBytes, &doc2); err != nil {
		return nil, err
	}

	return openapi2conv.ToV3(&doc2)
}

// extractEndpoints walks all path x method combinations in deterministic
// order (sorted paths, fixed method order).
func extractEndpoints(doc *openapi3.T) []domain.Endpoint {
	endpoints := []domain.Endpoint{}
	if doc.Paths == nil {
		return endpoints
	}

	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for p := range pathMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := pathMap[path]
		if item == nil {
			continue
		}
		for _, method := range methodOrder {
			op := item.GetOperation(method)
			if op == nil {
				continue
			}
			endpoints = append(endpoints, domain.Endpoint{
				Path:       path,
				Method:     method,
				Purpose:    inferEndpointPurpose(path, method, op.Summary),
				Parameters: extractParameters(op),
				Responses:  extractResponses(op),
			})
		}
	}

	return endpoints
}

// inferEndpointPurpose assigns a semantic label from path and method
// keywords, falling back to the operation summary.
func inferEndpointPurpose(path, method, summary string) string {
	pathLower := strings.ToLower(path)
	methodLower := strings.ToLower(method)

	switch {
	case strings.Contains(pathLower, "payment") || strings.Contains(pathLower, "checkout"):
		switch methodLower {
		case "post":
			return "create_payment"
		case "get":
			return "get_payment"
		case "delete":
			return "cancel_payment"
		}
	case strings.Contains(pathLower, "shipment") || strings.Contains(pathLower, "shipping"):
		switch methodLower {
		case "post":
			return "create_shipment"
		case "get":
			return "get_shipment"
		case "put", "patch":
			return "update_shipment"
		case "delete":
			return "cancel_shipment"
		}
	case strings.Contains(pathLower, "campaign") || strings.Contains(pathLower, "message") || strings.Contains(pathLower, "email"):
		switch methodLower {
		case "post":
			return "create_campaign"
		case "get":
			return "get_campaign"
		}
	case strings.Contains(pathLower, "auth") || strings.Contains(pathLower, "token"):
		return "authentication"
	}

	if summary != "" {
		return summary
	}

	segments := strings.Split(strings.Trim(pathLower, "/"), "/")
	last := "resource"
	if len(segments) > 0 && segments[len(segments)-1] != "" {
		last = segments[len(segments)-1]
	}
	return methodLower + "_" + last
}

func extractParameters(op *openapi3.Operation) []domain.Parameter {
	params := []domain.Parameter{}

	for _, ref := range op.Parameters {
		if ref == nil || ref.Value == nil {
			continue
		}
		p := ref.Value
		params = append(params, domain.Parameter{
			Name:        p.Name,
			Type:        schemaType(p.Schema),
			Required:    p.Required,
			Description: p.Description,
		})
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if media, ok := op.RequestBody.Value.Content["application/json"]; ok && media.Schema != nil && media.Schema.Value != nil {
			schema := media.Schema.Value

			names := make([]string, 0, len(schema.Properties))
			for name := range schema.Properties {
				names = append(names, name)
			}
			sort.Strings(names)

			required := make(map[string]bool, len(schema.Required))
			for _, name := range schema.Required {
				required[name] = true
			}

			for _, name := range names {
				prop := schema.Properties[name]
				desc := ""
				if prop != nil && prop.Value != nil {
					desc = prop.Value.Description
				}
				params = append(params, domain.Parameter{
					Name:        name,
					Type:        schemaType(prop),
					Required:    required[name],
					Description: desc,
				})
			}
		}
	}

	return params
}

func extractResponses(op *openapi3.Operation) []domain.Response {
	responses := []domain.Response{}
	if op.Responses == nil {
		return responses
	}

	codes := make([]string, 0, op.Responses.Len())
	for code := range op.Responses.Map() {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		ref := op.Responses.Value(code)
		if ref == nil || ref.Value == nil {
			continue
		}
		status, err := strconv.Atoi(code)
		if err != nil {
			continue // "default" and friends carry no status code
		}
		desc := ""
		if ref.Value.Description != nil {
			desc = *ref.Value.Description
		}
		responses = append(responses, domain.Response{StatusCode: status, Description: desc})
	}

	return responses
}

// extractAuthentication picks the authentication scheme by fixed priority:
// first HTTP bearer, else first apiKey, else first oauth2, else HTTP basic.
// Scheme names are sorted so "first" is deterministic.
func extractAuthentication(doc *openapi3.T) domain.Authentication {
	if doc.Components == nil || len(doc.Components.SecuritySchemes) == 0 {
		return domain.Authentication{Type: domain.AuthTypeUnknown}
	}

	names := make([]string, 0, len(doc.Components.SecuritySchemes))
	for name := range doc.Components.SecuritySchemes {
		names = append(names, name)
	}
	sort.Strings(names)

	scheme := func(name string) *openapi3.SecurityScheme {
		ref := doc.Components.SecuritySchemes[name]
		if ref == nil {
			return nil
		}
		return ref.Value
	}

	for _, name := range names {
		if s := scheme(name); s != nil && s.Type == "http" && strings.EqualFold(s.Scheme, "bearer") {
			return domain.Authentication{
				Type:          domain.AuthTypeBearer,
				Location:      "header",
				ParameterName: "Authorization",
				Description:   s.Description,
			}
		}
	}
	for _, name := range names {
		if s := scheme(name); s != nil && s.Type == "apiKey" {
			return domain.Authentication{
				Type:          domain.AuthTypeAPIKey,
				Location:      s.In,
				ParameterName: s.Name,
				Description:   s.Description,
			}
		}
	}
	for _, name := range names {
		if s := scheme(name); s != nil && s.Type == "oauth2" {
			return domain.Authentication{Type: domain.AuthTypeOAuth, Description: s.Description}
		}
	}
	for _, name := range names {
		if s := scheme(name); s != nil && s.Type == "http" && strings.EqualFold(s.Scheme, "basic") {
			return domain.Authentication{Type: domain.AuthTypeBasic, Description: s.Description}
		}
	}

	return domain.Authentication{Type: domain.AuthTypeUnknown}
}

func schemaType(ref *openapi3.SchemaRef) string {
	if ref == nil || ref.Value == nil || ref.Value.Type == nil {
		return "string"
	}
	types := *ref.Value.Type
	if len(types) == 0 {
		return "string"
	}
	return types[0]
}

// inferProviderType counts keyword families over the whole document plus the
// extracted endpoint paths.
func inferProviderType(raw []byte, endpoints []domain.Endpoint) domain.ProviderType {
	var b strings.Builder
	b.Write(raw)
	for _, ep := range endpoints {
		b.WriteString(" ")
		b.WriteString(ep.Path)
	}
	return heuristics.DetectProviderType(b.String())
}

var _ ports.SpecNormalizer = (*Analyzer)(nil)

package heuristics

import (
	"regexp"
	"strings"

	"github.com/conexa/sdkforge/internal/core/domain"
)

// Signal patterns mirror the families used to annotate extracted
// documentation text. They are intentionally loose: the scorer only needs
// presence, not precision.
var (
	endpointPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(POST|GET|PUT|DELETE|PATCH)\s+/\S*`),
		regexp.MustCompile(`(?i)\b(post|get|put|delete|patch)\b`),
		regexp.MustCompile(`(?i)/api/\S*`),
		regexp.MustCompile(`(?i)/v\d+/\S*`),
		regexp.MustCompile(`(?i)endpoints?[\s:]`),
		regexp.MustCompile(`(?i)routes?[\s:]`),
		regexp.MustCompile(`(?i)https?://\S+/api`),
	}

	authPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)authentication`),
		regexp.MustCompile(`(?i)authorization`),
		regexp.MustCompile(`(?i)\bauth\b`),
		regexp.MustCompile(`(?i)api[\s-]?key`),
		regexp.MustCompile(`(?i)\btokens?\b`),
		regexp.MustCompile(`(?i)\bbearer\b`),
		regexp.MustCompile(`(?i)credentials?`),
		regexp.MustCompile(`(?i)oauth`),
		regexp.MustCompile(`(?i)\bjwt\b`),
		regexp.MustCompile(`(?i)basic[\s-]?auth`),
		regexp.MustCompile(`(?i)x-api-key`),
	}

	examplePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)examples?`),
		regexp.MustCompile(`(?i)samples?`),
		regexp.MustCompile(`(?i)\bcurl\b`),
		regexp.MustCompile(`(?i)\brequest\b`),
		regexp.MustCompile(`(?i)\bresponse\b`),
		regexp.MustCompile(`(?i)payload`),
	}

	schemaPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)schemas?`),
		regexp.MustCompile(`(?i)\bmodels?\b`),
		regexp.MustCompile(`(?i)parameters?`),
		regexp.MustCompile(`(?i)\bfields?\b`),
		regexp.MustCompile(`(?i)propert(y|ies)`),
	}

	sectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^[A-Z][A-Z\s]{5,}$`),
		regexp.MustCompile(`(?m)^\d+\.?\s+[A-Z][A-Za-z\s]{5,}$`),
		regexp.MustCompile(`(?m)^#{1,3}\s+.+$`),
		regexp.MustCompile(`(?m)^[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*:$`),
	}
)

// providerKeywords holds the keyword families used to classify a provider.
// The family with the strictly highest occurrence count wins; ties and an
// all-zero result yield unknown.
var providerKeywords = map[domain.ProviderType][]string{
	domain.ProviderTypePayment: {
		"payment", "transaction", "checkout", "billing", "invoice", "refund",
		"charge", "subscription", "credit card", "currency", "money",
	},
	domain.ProviderTypeShipping: {
		"shipping", "shipment", "delivery", "logistics", "tracking", "label",
		"address", "package", "freight", "carrier",
	},
	domain.ProviderTypeMessaging: {
		"email", "sms", "notification", "campaign", "newsletter",
		"subscriber", "template", "message",
	},
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func HasEndpointSignals(text string) bool { return anyMatch(endpointPatterns, text) }
func HasAuthSignals(text string) bool     { return anyMatch(authPatterns, text) }
func HasExampleSignals(text string) bool  { return anyMatch(examplePatterns, text) }
func HasSchemaSignals(text string) bool   { return anyMatch(schemaPatterns, text) }

// DetectProviderType counts keyword-family occurrences across the full text
// and returns the family with the strictly highest count.
func DetectProviderType(text string) domain.ProviderType {
	lower := strings.ToLower(text)

	counts := make(map[domain.ProviderType]int, len(providerKeywords))
	for family, keywords := range providerKeywords {
		for _, kw := range keywords {
			counts[family] += strings.Count(lower, kw)
		}
	}

	best := domain.ProviderTypeUnknown
	max, tied := 0, false
	for _, family := range []domain.ProviderType{
		domain.ProviderTypePayment,
		domain.ProviderTypeShipping,
		domain.ProviderTypeMessaging,
	} {
		switch {
		case counts[family] > max:
			best, max, tied = family, counts[family], false
		case counts[family] == max && max > 0:
			tied = true
		}
	}

	if max == 0 || tied {
		return domain.ProviderTypeUnknown
	}
	return best
}

// ExtractSections pulls headline-looking lines from documentation text,
// deduplicated and capped at 15 entries.
func ExtractSections(text string) []string {
	seen := make(map[string]struct{})
	var sections []string

	for _, p := range sectionPatterns {
		for _, m := range p.FindAllString(text, -1) {
			trimmed := strings.TrimSpace(m)
			if trimmed == "" {
				continue
			}
			if _, ok := seen[trimmed]; ok {
				continue
			}
			seen[trimmed] = struct{}{}
			sections = append(sections, trimmed)
			if len(sections) == 15 {
				return sections
			}
		}
	}

	return sections
}

// Package enrich turns raw homepage text into a structured company profile
// through an external language model.
package enrich

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// BusinessModels are the accepted values for Profile.BusinessModel.
var BusinessModels = []string{"B2B", "B2C", "B2G", "C2C"}

// Industries is the fixed taxonomy accepted for Profile.Industry.
var Industries = []string{
	"Administrative Services",
	"Advertising",
	"Agriculture & Farming",
	"Apps",
	"Artificial Intelligence",
	"Biotechnology",
	"Clothing & Apparel",
	"Commerce & Shopping",
	"Community & Lifestyle",
	"Consumer Electronics",
	"Consumer Goods",
	"Content and Publishing",
	"Data & Analytics",
	"Design",
	"Education",
	"Energy",
	"Events",
	"Financial Services",
	"Food and Beverage",
	"Gaming",
	"Government and Military",
	"Hardware",
	"Health Care",
	"Information Technology",
	"Internet Services",
	"Lending and Investments",
	"Manufacturing",
	"Media and Entertainment",
	"Messaging and Telecommunications",
	"Mobile",
	"Music and Audio",
	"Natural Resources",
	"Navigation and Mapping",
	"Payments",
	"Platforms",
	"Privacy and Security",
	"Professional Services",
	"Real Estate",
	"Sales and Marketing",
	"Science and Engineering",
	"Software",
	"Sports",
	"Sustainability",
	"Transportation",
	"Travel and Tourism",
	"Video",
}

// Profile is the structured analysis of one company homepage.
type Profile struct {
	Description    string `json:"description"`
	TargetAudience string `json:"target_audience"`
	MarketProblem  string `json:"market_problem"`
	Product        string `json:"product"`
	BusinessModel  string `json:"business_model"`
	Industry       string `json:"industry"`
}

// Format renders the profile as the tagged text stored in the description
// column. Empty fields are omitted.
func (p Profile) Format() string {
	fields := []struct{ tag, value string }{
		{"Description", p.Description},
		{"Target Audience", p.TargetAudience},
		{"Market Problem", p.MarketProblem},
		{"Product", p.Product},
		{"Business Model", p.BusinessModel},
		{"Industry", p.Industry},
	}
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("#%s# %s", f.tag, f.value))
	}
	return strings.Join(lines, "\n")
}

// Normalize trims every field and maps BusinessModel and Industry onto their
// canonical spelling, clearing values outside the allowed sets.
func (p Profile) Normalize() Profile {
	p.Description = strings.TrimSpace(p.Description)
	p.TargetAudience = strings.TrimSpace(p.TargetAudience)
	p.MarketProblem = strings.TrimSpace(p.MarketProblem)
	p.Product = strings.TrimSpace(p.Product)
	p.BusinessModel = canonical(p.BusinessModel, BusinessModels)
	p.Industry = canonical(p.Industry, Industries)
	return p
}

func canonical(value string, allowed []string) string {
	value = strings.TrimSpace(value)
	for _, candidate := range allowed {
		if strings.EqualFold(value, candidate) {
			return candidate
		}
	}
	return ""
}

// Instructions is the system prompt shared by every provider.
func Instructions() string {
	return strings.TrimSpace(`
You are a helpful assistant that provides concise business descriptions.
Analyze the company homepage text you are given and return ONLY a single JSON object with these keys:
- description (string): brief company overview
- target_audience (string): who they serve
- market_problem (string): problem they solve
- product (string): their product or service
- business_model (string): one of ` + strings.Join(BusinessModels, ", ") + `
- industry (string): one of ` + strings.Join(Industries, ", ") + `

Rules:
- If the text does not support a field, set it to an empty string.
- Do not include extra keys.
`)
}

// ParseProfile decodes a model reply, tolerating a surrounding markdown fence.
func ParseProfile(raw string) (Profile, error) {
	body := strings.TrimSpace(raw)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	}
	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		body = body[start : end+1]
	}
	var p Profile
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile json: %w", err)
	}
	return p, nil
}

// Truncate limits text to at most limit runes. A non-positive limit disables it.
func Truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}

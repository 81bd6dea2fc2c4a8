// Package refine turns noisy provider evidence into schema-checked facts
// with one generative call per collection phase.
package refine

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dzhechko/B2BSalesAI/internal/extract"
	"github.com/dzhechko/B2BSalesAI/internal/llmjson"
	"github.com/dzhechko/B2BSalesAI/internal/model"
	"github.com/dzhechko/B2BSalesAI/pkg/anthropic"
)

const (
	temperature      = 0.1
	defaultMaxTokens = 1024

	// Stage names used in ExtractionParseError and cost logs.
	StageCompany = "refine_company"
	StageContact = "refine_contact"
)

// ClientFactory builds an Anthropic client for one user's key.
type ClientFactory func(apiKey string) anthropic.Client

// CompanyFacts is the refined company-phase output. Empty means unknown.
type CompanyFacts struct {
	Industry  string
	Revenue   string
	Employees string
	Products  []string
	Summary   string
}

// ContactFacts is the refined contact-phase output. Empty means unknown.
type ContactFacts struct {
	JobTitle    string
	SocialPosts []model.SocialPost
	Summary     string
}

// Refiner calls the generative backend and normalises its answers.
type Refiner struct {
	newClient ClientFactory
	model     string
	maxTokens int64
	now       func() time.Time
}

// Option configures a Refiner.
type Option func(*Refiner)

// WithModel overrides the model id.
func WithModel(m string) Option {
	return func(r *Refiner) {
		if m != "" {
			r.model = m
		}
	}
}

// WithMaxTokens overrides the response token cap.
func WithMaxTokens(n int64) Option {
	return func(r *Refiner) {
		if n > 0 {
			r.maxTokens = n
		}
	}
}

// WithClock overrides the clock used to date posts without a date.
func WithClock(now func() time.Time) Option {
	return func(r *Refiner) { r.now = now }
}

// New creates a Refiner.
func New(factory ClientFactory, opts ...Option) *Refiner {
	r := &Refiner{
		newClient: factory,
		model:     anthropic.DefaultModel,
		maxTokens: defaultMaxTokens,
		now:       time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

const systemPrompt = `Ты - аналитик B2B-продаж. Тебе дают разрозненные результаты веб-поиска.
Отвечай только одним JSON-объектом без пояснений и без markdown.
Если значение неизвестно или не подтверждается данными, ставь null. Не выдумывай факты.`

var companySchema = llmjson.MustCompile(`{
  "type": "object",
  "properties": {
    "industry":  {"type": ["string", "null"]},
    "revenue":   {"type": ["string", "number", "null"]},
    "employees": {"type": ["string", "integer", "null"]},
    "products":  {"type": ["array", "string", "null"], "items": {"type": ["string", "number"]}},
    "summary":   {"type": ["string", "null"]}
  }
}`)

var contactSchema = llmjson.MustCompile(`{
  "type": "object",
  "properties": {
    "jobTitle": {"type": ["string", "null"]},
    "socialPosts": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "platform": {"type": ["string", "null"]},
          "date":     {"type": ["string", "null"]},
          "content":  {"type": ["string", "null"]}
        }
      }
    },
    "summary": {"type": ["string", "null"]}
  }
}`)

type companyAnswer struct {
	Industry  llmjson.FlexString `json:"industry"`
	Revenue   llmjson.FlexString `json:"revenue"`
	Employees llmjson.FlexString `json:"employees"`
	Products  llmjson.FlexList   `json:"products"`
	Summary   llmjson.FlexString `json:"summary"`
}

type contactAnswer struct {
	JobTitle    llmjson.FlexString `json:"jobTitle"`
	SocialPosts []struct {
		Platform llmjson.FlexString `json:"platform"`
		Date     llmjson.FlexString `json:"date"`
		Content  llmjson.FlexString `json:"content"`
	} `json:"socialPosts"`
	Summary llmjson.FlexString `json:"summary"`
}

// Company refines company-phase evidence.
func (r *Refiner) Company(ctx context.Context, apiKey, companyName string, evidence []string) (*CompanyFacts, error) {
	prompt := fmt.Sprintf(`Компания: %s

Данные из поиска:
%s

Верни JSON с ключами:
"industry" - отрасль компании,
"revenue" - годовая выручка с валютой (например "500 млрд руб"),
"employees" - количество сотрудников числом,
"products" - массив основных продуктов или услуг,
"summary" - краткое описание компании в 2-3 предложениях.`, companyName, joinEvidence(evidence))

	text, err := r.call(ctx, apiKey, StageCompany, prompt)
	if err != nil {
		return nil, err
	}

	var ans companyAnswer
	if err := llmjson.Decode(text, companySchema, &ans); err != nil {
		return nil, &model.ExtractionParseError{Stage: StageCompany, Raw: text, Err: err}
	}

	facts := &CompanyFacts{
		Industry:  fragment(string(ans.Industry)),
		Revenue:   Revenue(string(ans.Revenue)),
		Employees: Employees(string(ans.Employees)),
		Summary:   fragment(string(ans.Summary)),
	}
	for _, p := range ans.Products {
		if p = fragment(p); p != "" {
			facts.Products = append(facts.Products, p)
		}
	}
	return facts, nil
}

// Contact refines contact-phase evidence.
func (r *Refiner) Contact(ctx context.Context, apiKey, contactName, companyName string, evidence []string) (*ContactFacts, error) {
	prompt := fmt.Sprintf(`Контакт: %s
Компания: %s

Данные из поиска:
%s

Верни JSON с ключами:
"jobTitle" - текущая должность контакта,
"socialPosts" - до 3 последних публикаций контакта в соцсетях, массив объектов {"platform", "date" в формате ДД.ММ.ГГГГ, "content"},
"summary" - краткое описание контакта в 2-3 предложениях.`, contactName, companyName, joinEvidence(evidence))

	text, err := r.call(ctx, apiKey, StageContact, prompt)
	if err != nil {
		return nil, err
	}

	var ans contactAnswer
	if err := llmjson.Decode(text, contactSchema, &ans); err != nil {
		return nil, &model.ExtractionParseError{Stage: StageContact, Raw: text, Err: err}
	}

	facts := &ContactFacts{
		JobTitle: fragment(string(ans.JobTitle)),
		Summary:  fragment(string(ans.Summary)),
	}
	for _, p := range ans.SocialPosts {
		if len(facts.SocialPosts) == extract.MaxSocialPosts {
			break
		}
		content := fragment(string(p.Content))
		if content == "" {
			continue
		}
		post := model.SocialPost{Platform: string(p.Platform), Date: string(p.Date), Content: content}
		if post.Platform == "" {
			post.Platform = extract.DefaultPlatform
		}
		if _, err := time.Parse(extract.DateLayout, post.Date); err != nil {
			post.Date = r.now().Format(extract.DateLayout)
		}
		facts.SocialPosts = append(facts.SocialPosts, post)
	}
	return facts, nil
}

func (r *Refiner) call(ctx context.Context, apiKey, stage, prompt string) (string, error) {
	temp := temperature
	resp, err := r.newClient(apiKey).CreateMessage(ctx, anthropic.MessageRequest{
		Model:       r.model,
		MaxTokens:   r.maxTokens,
		System:      []anthropic.SystemBlock{{Text: systemPrompt}},
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrapf(err, "refine: %s", stage)
	}
	resp.Usage.LogCost(r.model, stage)

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &model.ExtractionParseError{Stage: stage, Err: eris.New("refine: empty response")}
	}
	zap.L().Debug("refine: response received", zap.String("stage", stage), zap.Int("chars", len(text)))
	return text, nil
}

func joinEvidence(evidence []string) string {
	var b strings.Builder
	for _, e := range evidence {
		if strings.TrimSpace(e) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString(e)
	}
	if b.Len() == 0 {
		return "(нет данных)"
	}
	return b.String()
}

// fragment trims v and drops values shorter than two runes.
func fragment(v string) string {
	v = strings.TrimSpace(v)
	if utf8.RuneCountInString(v) < 2 {
		return ""
	}
	return v
}

// Employees accepts a pure headcount and returns its digits. Thousand
// separators (spaces) are tolerated; anything else yields "".
func Employees(v string) string {
	v = strings.TrimSpace(v)
	var b strings.Builder
	for _, r := range v {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
		default:
			return ""
		}
	}
	return b.String()
}

var currencyMarkers = []string{"руб", "₽", "$", "€", "usd", "eur", "rub", "доллар", "евро"}

// Revenue keeps v only when it holds a digit and a currency marker.
func Revenue(v string) string {
	v = fragment(v)
	if v == "" || strings.IndexFunc(v, unicode.IsDigit) < 0 {
		return ""
	}
	lower := strings.ToLower(v)
	for _, m := range currencyMarkers {
		if strings.Contains(lower, m) {
			return v
		}
	}
	return ""
}

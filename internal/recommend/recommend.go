// Package recommend generates playbook-grounded product recommendations for
// a contact from its collected data.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dzhechko/B2BSalesAI/internal/llmjson"
	"github.com/dzhechko/B2BSalesAI/internal/metrics"
	"github.com/dzhechko/B2BSalesAI/internal/model"
	"github.com/dzhechko/B2BSalesAI/pkg/anthropic"
	"github.com/dzhechko/B2BSalesAI/pkg/gemini"
)

// Stage names the recommendation step in ExtractionParseError.
const Stage = "recommend"

// DefaultTimeout bounds one generation call.
const DefaultTimeout = 90 * time.Second

const (
	temperature      = 0.7
	defaultMaxTokens = 2048
)

// Store is the persistence the generator needs.
type Store interface {
	GetContact(ctx context.Context, userID, contactID int64) (*model.Contact, error)
	GetSettings(ctx context.Context, userID int64) (*model.UserSettings, error)
	GetCredentials(ctx context.Context, userID int64) (*model.Credentials, error)
	SaveRecommendations(ctx context.Context, userID, contactID int64, recs []model.Recommendation) (*model.Contact, error)
}

// AnthropicFactory builds an Anthropic client for one user's key.
type AnthropicFactory func(apiKey string) anthropic.Client

// GeminiFactory builds a Gemini client for one user's key.
type GeminiFactory func(ctx context.Context, apiKey string) (gemini.Client, error)

// Generator produces and persists recommendation batches.
type Generator struct {
	store        Store
	newAnthropic AnthropicFactory
	newGemini    GeminiFactory
	defaultModel string
	timeout      time.Duration
}

// Option configures a Generator.
type Option func(*Generator)

// WithGemini enables gemini-* model ids.
func WithGemini(f GeminiFactory) Option {
	return func(g *Generator) { g.newGemini = f }
}

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(m string) Option {
	return func(g *Generator) {
		if m != "" {
			g.defaultModel = m
		}
	}
}

// WithTimeout bounds each generation call.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// New creates a Generator backed by Anthropic.
func New(st Store, newAnthropic AnthropicFactory, opts ...Option) *Generator {
	g := &Generator{
		store:        st,
		newAnthropic: newAnthropic,
		defaultModel: anthropic.DefaultModel,
		timeout:      DefaultTimeout,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// IsGemini reports whether modelID selects the Gemini backend.
func IsGemini(modelID string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(modelID)), "gemini")
}

var schema = llmjson.MustCompile(`{
  "type": "object",
  "required": ["recommendations"],
  "properties": {
    "recommendations": {
      "type": "array",
      "minItems": 3,
      "maxItems": 3,
      "items": {
        "type": "object",
        "required": ["title", "description", "rationale", "benefits"],
        "properties": {
          "title":       {"type": "string", "minLength": 1},
          "description": {"type": "string", "minLength": 1},
          "rationale":   {"type": "string", "minLength": 1},
          "benefits":    {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`)

type answer struct {
	Recommendations []model.Recommendation `json:"recommendations"`
}

// Generate builds one prompt from the contact's data and playbook, asks the
// selected model for exactly three recommendations and replaces the
// contact's stored list on success.
func (g *Generator) Generate(ctx context.Context, userID, contactID int64, modelID string) (recs []model.Recommendation, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeOK
		if err != nil {
			outcome = metrics.OutcomeFailed
		}
		metrics.Runs.WithLabelValues("recommend", outcome).Inc()
		metrics.RunDuration.WithLabelValues("recommend").Observe(time.Since(start).Seconds())
	}()

	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		modelID = g.defaultModel
	}
	log := zap.L().With(
		zap.Int64("user_id", userID),
		zap.Int64("contact_id", contactID),
		zap.String("model", modelID),
	)

	contact, err := g.store.GetContact(ctx, userID, contactID)
	if err != nil {
		return nil, g.wrap(contactID, err)
	}
	creds, err := g.store.GetCredentials(ctx, userID)
	if err != nil {
		return nil, g.wrap(contactID, err)
	}
	settings, err := g.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, g.wrap(contactID, err)
	}

	prompt := Prompt(contact, settings.EffectivePlaybook())

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var text string
	if IsGemini(modelID) {
		text, err = g.viaGemini(callCtx, creds, modelID, prompt)
	} else {
		text, err = g.viaAnthropic(callCtx, creds, modelID, prompt)
	}
	if err != nil {
		var cfgErr *model.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		log.Error("recommend: generation failed", zap.Error(err))
		return nil, &model.RecommendationError{ContactID: contactID, Err: err}
	}

	recs, err = Parse(text)
	if err != nil {
		log.Warn("recommend: unparseable model output", zap.Error(err))
		metrics.RefineOutcomes.WithLabelValues(Stage, metrics.OutcomeParse).Inc()
		return nil, &model.RecommendationError{ContactID: contactID, Err: err}
	}

	if _, err := g.store.SaveRecommendations(ctx, userID, contactID, recs); err != nil {
		return nil, g.wrap(contactID, err)
	}
	log.Info("recommend: saved", zap.Int("count", len(recs)), zap.Duration("elapsed", time.Since(start)))
	return recs, nil
}

func (g *Generator) wrap(contactID int64, err error) error {
	var nf *model.NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	return &model.RecommendationError{ContactID: contactID, Err: err}
}

const systemPrompt = "Ты - эксперт по B2B продажам. Отвечай только JSON-объектом без пояснений и без markdown."

func (g *Generator) viaAnthropic(ctx context.Context, creds *model.Credentials, modelID, prompt string) (string, error) {
	if creds.AnthropicKey == "" {
		return "", &model.ConfigurationError{Reason: "Anthropic API key not configured"}
	}
	temp := temperature
	resp, err := g.newAnthropic(creds.AnthropicKey).CreateMessage(ctx, anthropic.MessageRequest{
		Model:       modelID,
		MaxTokens:   defaultMaxTokens,
		System:      []anthropic.SystemBlock{{Text: systemPrompt}},
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrap(err, "recommend: anthropic")
	}
	resp.Usage.LogCost(modelID, Stage)
	return resp.Text(), nil
}

func (g *Generator) viaGemini(ctx context.Context, creds *model.Credentials, modelID, prompt string) (string, error) {
	if g.newGemini == nil {
		return "", &model.ConfigurationError{Reason: fmt.Sprintf("model %s is not available", modelID)}
	}
	if creds.GeminiKey == "" {
		return "", &model.ConfigurationError{Reason: "Gemini API key not configured"}
	}
	client, err := g.newGemini(ctx, creds.GeminiKey)
	if err != nil {
		return "", eris.Wrap(err, "recommend: gemini client")
	}
	defer client.Close() //nolint:errcheck

	temp := float32(temperature)
	resp, err := client.Generate(ctx, gemini.GenerateRequest{
		Model:             modelID,
		SystemInstruction: systemPrompt,
		Prompt:            prompt,
		Temperature:       &temp,
		JSON:              true,
	})
	if err != nil {
		return "", eris.Wrap(err, "recommend: gemini")
	}
	zap.L().Debug("recommend: gemini usage",
		zap.Int32("input_tokens", resp.InputTokens),
		zap.Int32("output_tokens", resp.OutputTokens),
	)
	return resp.Text, nil
}

// Parse validates model output and returns exactly three complete
// recommendations, or an *model.ExtractionParseError.
func Parse(text string) ([]model.Recommendation, error) {
	var ans answer
	if err := llmjson.Decode(text, schema, &ans); err != nil {
		return nil, &model.ExtractionParseError{Stage: Stage, Raw: text, Err: err}
	}
	out := make([]model.Recommendation, 0, len(ans.Recommendations))
	for i, r := range ans.Recommendations {
		r = model.Recommendation{
			Title:       strings.TrimSpace(r.Title),
			Description: strings.TrimSpace(r.Description),
			Rationale:   strings.TrimSpace(r.Rationale),
			Benefits:    strings.TrimSpace(r.Benefits),
		}
		if !r.Complete() {
			return nil, &model.ExtractionParseError{
				Stage: Stage,
				Raw:   text,
				Err:   eris.Errorf("recommend: item %d is incomplete", i+1),
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// Prompt renders the generation prompt for a contact.
func Prompt(c *model.Contact, playbook string) string {
	data := c.CollectedData
	if data == nil {
		data = &model.CollectedData{}
	}
	or := func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return v
	}
	position := c.Position
	if position == "" {
		position = data.JobTitle
	}
	posts := make([]string, 0, len(data.SocialPosts))
	for _, p := range data.SocialPosts {
		posts = append(posts, p.Content)
	}

	var b strings.Builder
	b.WriteString("Ты - эксперт по B2B продажам. На основе следующей информации создай 3 персонализированные рекомендации продуктов для продажи:\n\n")
	b.WriteString("СПРАВОЧНИК ПРОДУКТОВ:\n")
	b.WriteString(playbook)
	b.WriteString("\n\nИНФОРМАЦИЯ О КОМПАНИИ:\n")
	fmt.Fprintf(&b, "- Название: %s\n", or(c.Company, "Не указано"))
	fmt.Fprintf(&b, "- Отрасль: %s\n", or(data.Industry, "Не указана"))
	fmt.Fprintf(&b, "- Выручка: %s\n", or(data.Revenue, "Не указана"))
	fmt.Fprintf(&b, "- Количество сотрудников: %s\n", or(data.Employees, "Не указано"))
	fmt.Fprintf(&b, "- Основные продукты: %s\n", or(strings.Join(data.Products, ", "), "Не указаны"))
	b.WriteString("\nИНФОРМАЦИЯ О КОНТАКТЕ:\n")
	fmt.Fprintf(&b, "- Имя: %s\n", c.Name)
	fmt.Fprintf(&b, "- Должность: %s\n", or(position, "Не указана"))
	fmt.Fprintf(&b, "- Последние публикации: %s\n", or(strings.Join(posts, "; "), "Нет данных"))
	b.WriteString(`
Для каждой рекомендации укажи:
1. Название продукта/решения
2. Краткое описание (2-3 предложения)
3. Почему это подходит именно этому клиенту
4. Потенциальную выгоду или ROI

Ответь в формате JSON:
{
  "recommendations": [
    {
      "title": "Название продукта",
      "description": "Описание решения",
      "rationale": "Почему подходит клиенту",
      "benefits": "Потенциальные выгоды"
    }
  ]
}
`)
	return b.String()
}

package provider

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dzhechko/B2BSalesAI/internal/extract"
	"github.com/dzhechko/B2BSalesAI/internal/llmjson"
	"github.com/dzhechko/B2BSalesAI/internal/model"
	"github.com/dzhechko/B2BSalesAI/pkg/perplexity"
)

// PerplexityFactory builds a Perplexity client for one user's key.
type PerplexityFactory func(apiKey string) perplexity.Client

const aiSystemPrompt = `Ты - эксперт по анализу компаний. Извлеки структурированную информацию из поискового запроса и верни в JSON формате.
Используй только эти ключи: "industry", "revenue", "employees", "products" (массив строк), "jobTitle",
"socialPosts" (массив объектов с ключами "platform", "date", "content"), "companySummary", "contactSummary".
Если данных нет, ставь null. Не добавляй пояснений вне JSON.`

const aiTemperature = 0.2

// AISearch asks a generative search backend for structured facts and falls
// back to pattern extraction when the answer is not JSON.
type AISearch struct {
	newClient PerplexityFactory
	model     string
	now       Clock
}

// NewAISearch creates the AI-search adapter. An empty model uses the
// client's default.
func NewAISearch(factory PerplexityFactory, model string) *AISearch {
	return &AISearch{newClient: factory, model: model, now: time.Now}
}

// WithClock overrides the clock used to date social posts.
func (a *AISearch) WithClock(now Clock) *AISearch {
	a.now = now
	return a
}

// Service implements Adapter.
func (a *AISearch) Service() model.Service { return model.ServicePerplexity }

type aiPost struct {
	Platform llmjson.FlexString `json:"platform"`
	Date     llmjson.FlexString `json:"date"`
	Content  llmjson.FlexString `json:"content"`
}

type aiFacts struct {
	Industry       llmjson.FlexString `json:"industry"`
	Revenue        llmjson.FlexString `json:"revenue"`
	Employees      llmjson.FlexString `json:"employees"`
	Products       llmjson.FlexList   `json:"products"`
	JobTitle       llmjson.FlexString `json:"jobTitle"`
	SocialPosts    []aiPost           `json:"socialPosts"`
	CompanySummary llmjson.FlexString `json:"companySummary"`
	ContactSummary llmjson.FlexString `json:"contactSummary"`
}

// Search implements Adapter.
func (a *AISearch) Search(ctx context.Context, query, credential string) (*model.ProviderResult, error) {
	temp := aiTemperature
	resp, err := a.newClient(credential).ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model: a.model,
		Messages: []perplexity.Message{
			{Role: "system", Content: aiSystemPrompt},
			{Role: "user", Content: query},
		},
		Temperature: &temp,
	})
	if err != nil {
		return nil, callError(model.ServicePerplexity, err)
	}

	content := strings.TrimSpace(resp.Content())
	if content == "" {
		return nil, callError(model.ServicePerplexity, errEmptyContent)
	}

	result := &model.ProviderResult{Raw: jsonPayload(resp.Raw)}

	var facts aiFacts
	if err := llmjson.Decode(content, nil, &facts); err == nil {
		result.Industry = string(facts.Industry)
		result.Revenue = string(facts.Revenue)
		result.Employees = string(facts.Employees)
		result.Products = []string(facts.Products)
		result.JobTitle = string(facts.JobTitle)
		result.CompanySummary = string(facts.CompanySummary)
		result.ContactSummary = string(facts.ContactSummary)
		for _, p := range facts.SocialPosts {
			if len(result.SocialPosts) == extract.MaxSocialPosts {
				break
			}
			if p.Content == "" {
				continue
			}
			post := model.SocialPost{Platform: string(p.Platform), Date: string(p.Date), Content: string(p.Content)}
			if post.Platform == "" {
				post.Platform = extract.DefaultPlatform
			}
			if post.Date == "" {
				post.Date = a.now().Format(extract.DateLayout)
			}
			result.SocialPosts = append(result.SocialPosts, post)
		}
	} else {
		zap.L().Debug("provider: ai answer is not JSON, falling back to patterns", zap.Error(err))
		fields := extract.Text(strings.ToLower(content))
		result.Industry = fields.Industry
		result.Revenue = fields.Revenue
		result.Employees = fields.Employees
		result.Products = extract.SplitList(fields.Products)
		result.JobTitle = fields.JobTitle
	}

	if len(result.SocialPosts) == 0 && len(resp.SearchResults) > 0 {
		items := make([]extract.Item, 0, len(resp.SearchResults))
		for _, r := range resp.SearchResults {
			items = append(items, extract.Item{URL: r.URL, Title: r.Title})
		}
		result.SocialPosts = extract.SocialPosts(items, a.now())
	}

	return result, nil
}

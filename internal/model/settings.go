package model

// UserSettings holds per-user preferences.
type UserSettings struct {
	UserID        int64     `json:"user_id" yaml:"-"`
	SearchSystems []Service `json:"searchSystems" yaml:"search_systems"`
	Playbook      string    `json:"playbook,omitempty" yaml:"playbook"`
	Theme         string    `json:"theme,omitempty" yaml:"theme"`
}

// DefaultSettings returns the preferences applied when a user has none stored.
func DefaultSettings(userID int64) *UserSettings {
	return &UserSettings{
		UserID:        userID,
		SearchSystems: []Service{ServiceBrave, ServicePerplexity},
		Theme:         "light",
	}
}

// EffectivePlaybook returns the user's playbook, or the built-in one when unset.
func (s *UserSettings) EffectivePlaybook() string {
	if s == nil || s.Playbook == "" {
		return DefaultPlaybook
	}
	return s.Playbook
}

// Credentials holds per-user third-party API keys. Values are opaque.
type Credentials struct {
	UserID          int64  `json:"user_id" yaml:"-"`
	BraveKey        string `json:"braveKey,omitempty" yaml:"brave_key"`
	PerplexityKey   string `json:"perplexityKey,omitempty" yaml:"perplexity_key"`
	AnthropicKey    string `json:"anthropicKey,omitempty" yaml:"anthropic_key"`
	GeminiKey       string `json:"geminiKey,omitempty" yaml:"gemini_key"`
	AmoCRMKey       string `json:"amoCrmKey,omitempty" yaml:"amocrm_key"`
	AmoCRMSubdomain string `json:"amoCrmSubdomain,omitempty" yaml:"amocrm_subdomain"`
}

// ProviderKey returns the user's key for a search provider.
func (c *Credentials) ProviderKey(s Service) string {
	if c == nil {
		return ""
	}
	switch s {
	case ServiceBrave:
		return c.BraveKey
	case ServicePerplexity:
		return c.PerplexityKey
	default:
		return ""
	}
}

// Merge overlays the non-empty fields of other onto c.
func (c *Credentials) Merge(other Credentials) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.BraveKey, other.BraveKey)
	set(&c.PerplexityKey, other.PerplexityKey)
	set(&c.AnthropicKey, other.AnthropicKey)
	set(&c.GeminiKey, other.GeminiKey)
	set(&c.AmoCRMKey, other.AmoCRMKey)
	set(&c.AmoCRMSubdomain, other.AmoCRMSubdomain)
}

// EnabledServices returns the providers that are both preferred and
// credentialed, in the fixed invocation order.
func EnabledServices(settings *UserSettings, creds *Credentials) []Service {
	if settings == nil || creds == nil {
		return nil
	}
	preferred := make(map[Service]bool, len(settings.SearchSystems))
	for _, s := range settings.SearchSystems {
		preferred[s] = true
	}
	var out []Service
	for _, s := range AllServices {
		if preferred[s] && creds.ProviderKey(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// DefaultPlaybook is the built-in product catalogue used for recommendations.
const DefaultPlaybook = `СПРАВОЧНИК ПРОДУКТОВ И УСЛУГ:

1. Система управления закупками с ИИ-аналитикой
   - Автоматизация процессов закупок
   - Оптимизация затрат на 15-20%
   - Анализ поставщиков и рисков
   - Интеграция с ERP-системами
   - Целевая аудитория: Крупные компании, банки, ритейл

2. Аналитическая BI-платформа
   - Бизнес-аналитика и отчетность
   - Прогнозирование и планирование
   - Интеграция данных из разных источников
   - Дашборды и визуализация
   - Целевая аудитория: Все отрасли, особенно финансы и ритейл

3. Система управления поставщиками
   - Оценка и мониторинг поставщиков
   - Управление рисками и соответствием
   - Автоматизация тендерных процессов
   - Интеграция с закупочными системами
   - Целевая аудитория: Производство, строительство, IT

4. Платформа для управления документооборотом
   - Электронный документооборот
   - Цифровые подписи и согласования
   - Архивирование и поиск документов
   - Интеграция с корпоративными системами
   - Целевая аудитория: Все отрасли

5. CRM система для B2B продаж
   - Управление клиентской базой
   - Автоматизация продаж
   - Аналитика эффективности
   - Интеграция с маркетинговыми инструментами
   - Целевая аудитория: B2B компании всех размеров

УНИКАЛЬНЫЕ ПРЕИМУЩЕСТВА:
- Быстрое внедрение (от 2 недель)
- Высокий ROI (окупаемость 6-18 месяцев)
- Российская разработка и поддержка
- Соответствие требованиям безопасности
- Гибкая настройка под бизнес-процессы
`

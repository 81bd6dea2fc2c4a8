package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dzhechko/B2BSalesAI/internal/model"
)

func TestText_RussianExample(t *testing.T) {
	t.Parallel()

	got := Text("Отрасль: информационные технологии. Выручка: 500 млрд руб. Сотрудников: 50000.")

	assert.Equal(t, Fields{
		Industry:  "информационные технологии",
		Revenue:   "500 млрд руб",
		Employees: "50000",
	}, got)
}

func TestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		expected Fields
	}{
		{
			name:     "empty text",
			text:     "   ",
			expected: Fields{},
		},
		{
			name:     "lowercase blob",
			text:     "сбер — крупнейший банк. сфера: банковское дело\nоборот 3 трлн руб, штат 200 тысяч",
			expected: Fields{Industry: "банковское дело", Revenue: "3 трлн руб", Employees: "200 тысяч"},
		},
		{
			name:     "products and services",
			text:     "основные продукты: облачные сервисы и хранилища. ",
			expected: Fields{Products: "облачные сервисы и хранилища"},
		},
		{
			name:     "job title label",
			text:     "иван иванов, должность: руководитель отдела закупок",
			expected: Fields{JobTitle: "руководитель отдела закупок"},
		},
		{
			name:     "director keeps the whole title",
			text:     "петр петров — генеральный директор ООО Ромашка",
			expected: Fields{JobTitle: "генеральный директор ООО Ромашка"},
		},
		{
			name:     "english fallback",
			text:     "industry: retail. revenue: $2.5 billion. employees: 1000",
			expected: Fields{Industry: "retail", Revenue: "$2.5 billion", Employees: "1000"},
		},
		{
			name:     "decimal comma kept, list comma splits",
			text:     "Выручка: 1,2 трлн руб, рост 5%",
			expected: Fields{Revenue: "1,2 трлн руб"},
		},
		{
			name:     "russian label wins over english",
			text:     "industry: retail. отрасль: розничная торговля",
			expected: Fields{Industry: "розничная торговля"},
		},
		{
			name:     "label without value is absent",
			text:     "выручка:.",
			expected: Fields{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Text(tt.text))
		})
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"CRM", "BI-платформа", "ЭДО"}, SplitList("CRM, BI-платформа; ЭДО"))
	assert.Nil(t, SplitList("  "))
}

func TestPlatform(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url    string
		name   string
		social bool
	}{
		{"https://www.linkedin.com/in/ivanov", "LinkedIn", true},
		{"https://ru.linkedin.com/posts/1", "LinkedIn", true},
		{"https://twitter.com/ivanov/status/1", "Twitter", true},
		{"https://x.com/ivanov", "Twitter", true},
		{"https://vk.com/ivanov", "VK", true},
		{"https://ok.ru/profile/1", DefaultPlatform, true},
		{"https://example.com/linkedin", "", false},
		{"https://notlinkedin.com/in/a", "", false},
		{"not a url", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			name, ok := Platform(tt.url)
			assert.Equal(t, tt.social, ok)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestSocialPosts(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)
	items := []Item{
		{URL: "https://example.com/news", Title: "News", Description: "not social"},
		{URL: "https://www.linkedin.com/posts/1", Title: "Post one", Description: "Запустили новый продукт"},
		{URL: "https://facebook.com/p/2", Title: "Post two"},
		{URL: "https://twitter.com/a/status/3", Title: "t3", Description: "third"},
		{URL: "https://vk.com/wall4", Title: "fourth"},
	}

	posts := SocialPosts(items, now)

	require.Len(t, posts, MaxSocialPosts)
	assert.Equal(t, model.SocialPost{Platform: "LinkedIn", Date: "07.03.2025", Content: "Запустили новый продукт"}, posts[0])
	assert.Equal(t, "Post two", posts[1].Content)
	assert.Equal(t, "Twitter", posts[2].Platform)
}

func TestSocialPosts_NoSocialItems(t *testing.T) {
	t.Parallel()

	posts := SocialPosts([]Item{{URL: "https://example.com"}}, time.Now())
	assert.Empty(t, posts)
}

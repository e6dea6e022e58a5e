// Package i18n localizes user-facing error messages.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Localization keys for user-facing error messages.
const (
	KeyInvalidID              = "error.invalid_id"
	KeyInvalidBody            = "error.invalid_body"
	KeyInternal               = "error.internal"
	KeyRateLimited            = "error.rate_limited"
	KeyPostNotFound           = "error.post.not_found"
	KeyPostTitleContentNeeded = "error.post.title_content_required"
	KeyTodoNotFound           = "error.todo.not_found"
	KeyTodoTitleNeeded        = "error.todo.title_required"
)

var supported = []language.Tag{
	language.AmericanEnglish,
	language.BrazilianPortuguese,
}

var messages = map[language.Tag]map[string]string{
	language.AmericanEnglish: {
		KeyInvalidID:              "Invalid id",
		KeyInvalidBody:            "Invalid request body",
		KeyInternal:               "Internal server error",
		KeyRateLimited:            "Too many requests",
		KeyPostNotFound:           "Post not found",
		KeyPostTitleContentNeeded: "Title and content are required",
		KeyTodoNotFound:           "Todo not found",
		KeyTodoTitleNeeded:        "Title is required",
	},
	language.BrazilianPortuguese: {
		KeyInvalidID:              "Identificador inválido",
		KeyInvalidBody:            "Corpo da requisição inválido",
		KeyInternal:               "Erro interno do servidor",
		KeyRateLimited:            "Muitas requisições",
		KeyPostNotFound:           "Post não encontrado",
		KeyPostTitleContentNeeded: "Título e conteúdo são obrigatórios",
		KeyTodoNotFound:           "Tarefa não encontrada",
		KeyTodoTitleNeeded:        "Título é obrigatório",
	},
}

var (
	builder = newBuilder()
	matcher = language.NewMatcher(supported)
)

func newBuilder() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.AmericanEnglish))
	for tag, entries := range messages {
		for key, msg := range entries {
			_ = b.SetString(tag, key, msg)
		}
	}
	return b
}

// DefaultTag returns the fallback language.
func DefaultTag() language.Tag {
	return language.AmericanEnglish
}

// ResolveTag picks the best supported language for an Accept-Language header.
func ResolveTag(acceptLanguage string) language.Tag {
	acceptLanguage = strings.TrimSpace(acceptLanguage)
	if acceptLanguage == "" {
		return DefaultTag()
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultTag()
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return DefaultTag()
	}
	return supported[index]
}

// Message returns the localized message for key, or fallback when the key is
// unknown.
func Message(tag language.Tag, key string, fallback string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	printer := message.NewPrinter(tag, message.Catalog(builder))
	return printer.Sprintf(message.Key(key, fallback))
}

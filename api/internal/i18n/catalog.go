// Package i18n holds the message catalogs of the coach and resolves a
// student's language to one of the supported locales.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the source locale; every other locale falls back to it.
const BaseLocale = "en-US"

type localeFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

//go:embed locales/*/*.yaml
var embeddedFS embed.FS

var defaultCatalog = mustLoadEmbedded()

// Catalog is a set of locales compiled into an x/text catalog.
type Catalog struct {
	builder  *catalog.Builder
	tags     []language.Tag
	matcher  language.Matcher
	messages map[string]map[string]string // locale -> key -> message
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	return defaultCatalog
}

// For resolves lang against the default catalog.
func For(lang string) Localizer {
	return defaultCatalog.Localizer(lang)
}

// LoadFromFS loads locales/<locale>/<namespace>.yaml files from fsys.
func LoadFromFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale files: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no locale files found")
	}
	sort.Strings(paths)

	messages := map[string]map[string]string{}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		var lf localeFile
		if err := yaml.Unmarshal(data, &lf); err != nil {
			return nil, fmt.Errorf("decode %s: %w", p, err)
		}
		if err := addFile(messages, p, lf); err != nil {
			return nil, err
		}
	}

	base, ok := messages[BaseLocale]
	if !ok {
		return nil, fmt.Errorf("base locale %s is not defined", BaseLocale)
	}

	baseTag := language.MustParse(BaseLocale)
	c := &Catalog{
		builder:  catalog.NewBuilder(catalog.Fallback(baseTag)),
		tags:     []language.Tag{baseTag},
		messages: messages,
	}
	locales := make([]string, 0, len(messages))
	for locale := range messages {
		if locale != BaseLocale {
			locales = append(locales, locale)
		}
	}
	sort.Strings(locales)
	for _, locale := range locales {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", locale, err)
		}
		c.tags = append(c.tags, tag)
	}

	for _, tag := range c.tags {
		own := messages[tag.String()]
		for key, msg := range base {
			if v, ok := own[key]; ok {
				msg = v
			}
			if err := c.builder.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("register %s %q: %w", tag, key, err)
			}
		}
	}
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

func addFile(messages map[string]map[string]string, p string, lf localeFile) error {
	locale := strings.TrimSpace(lf.Locale)
	if locale == "" {
		return fmt.Errorf("%s: locale is required", p)
	}
	if dir := path.Base(path.Dir(p)); locale != dir {
		return fmt.Errorf("%s: locale %q must match directory %q", p, locale, dir)
	}
	namespace := strings.TrimSpace(lf.Namespace)
	if want := strings.TrimSuffix(path.Base(p), path.Ext(p)); namespace != want {
		return fmt.Errorf("%s: namespace %q must match file name %q", p, namespace, want)
	}
	if len(lf.Messages) == 0 {
		return fmt.Errorf("%s: messages are required", p)
	}

	dst, ok := messages[locale]
	if !ok {
		dst = map[string]string{}
		messages[locale] = dst
	}
	for key, msg := range lf.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("%s: blank message key", p)
		}
		if _, dup := dst[key]; dup {
			return fmt.Errorf("%s: duplicate key %q in locale %s", p, key, locale)
		}
		dst[key] = msg
	}
	return nil
}

// Locales lists the supported locale identifiers, base first.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.tags))
	for _, t := range c.tags {
		out = append(out, t.String())
	}
	return out
}

// Has reports whether key is defined in the base locale.
func (c *Catalog) Has(key string) bool {
	_, ok := c.messages[BaseLocale][key]
	return ok
}

// Match picks the closest supported locale for lang, which may be a bare
// tag ("fr"), a full tag ("fr-CA") or an Accept-Language header value.
func (c *Catalog) Match(lang string) string {
	_, idx := language.MatchStrings(c.matcher, lang)
	return c.tags[idx].String()
}

// Localizer returns a printer bound to the locale closest to lang.
func (c *Catalog) Localizer(lang string) Localizer {
	_, idx := language.MatchStrings(c.matcher, lang)
	tag := c.tags[idx]
	return Localizer{tag: tag, p: message.NewPrinter(tag, message.Catalog(c.builder))}
}

// Localizer formats catalog messages for one locale.
type Localizer struct {
	tag language.Tag
	p   *message.Printer
}

// Locale returns the locale identifier, e.g. "fr-FR".
func (l Localizer) Locale() string {
	return l.tag.String()
}

// T formats the message registered under key. Arguments are substituted
// into the message's verbs.
func (l Localizer) T(key string, args ...any) string {
	if l.p == nil {
		return For(BaseLocale).T(key, args...)
	}
	return l.p.Sprintf(key, args...)
}

func mustLoadEmbedded() *Catalog {
	c, err := LoadFromFS(embeddedFS)
	if err != nil {
		panic(err)
	}
	return c
}

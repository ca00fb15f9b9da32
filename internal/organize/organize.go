// Package organize groups open tabs into contexts by hostname.
package organize

import (
	"fmt"

	"github.com/lotas/ctxkeep/internal/applog"
	"github.com/lotas/ctxkeep/internal/classify"
	"github.com/lotas/ctxkeep/internal/types"
)

// Tags attached to organizer output.
const (
	TagAuto      = "auto-organized"
	TagSmart     = "smart-organized"
	TagPriority  = "priority"
	TagImportant = "important"
)

// Saver persists a context. *contexts.Store satisfies it.
type Saver interface {
	Save(c types.Context) (types.Context, error)
}

// Options tunes the smart strategy.
type Options struct {
	// ExcludePriorityFromDomains drops priority tabs from the domain pass so
	// that no tab ends up in two smart contexts. Off by default: a pinned or
	// active tab on an ordinary domain also counts towards its domain bucket.
	ExcludePriorityFromDomains bool
}

// Organizer plans and persists hostname groupings.
type Organizer struct {
	classifier *classify.Classifier
	saver      Saver
	opts       Options
}

// New returns an Organizer. saver may be nil when only the Plan methods are
// used.
func New(c *classify.Classifier, saver Saver, opts Options) *Organizer {
	return &Organizer{classifier: c, saver: saver, opts: opts}
}

// Bucket is the set of tabs sharing one hostname.
type Bucket struct {
	Host string
	Tabs []types.Tab
}

// Buckets groups tabs by hostname. Buckets appear in first-seen order and
// tabs keep their capture order. Tabs with an unusable URL are skipped.
func (o *Organizer) Buckets(tabs []types.Tab) []Bucket {
	index := make(map[string]int)
	var buckets []Bucket
	for _, t := range tabs {
		host, err := o.classifier.Host(t.URL)
		if err != nil {
			applog.Warn("organize.skip", "url", t.URL, "reason", err.Error())
			continue
		}
		i, ok := index[host]
		if !ok {
			i = len(buckets)
			index[host] = i
			buckets = append(buckets, Bucket{Host: host})
		}
		buckets[i].Tabs = append(buckets[i].Tabs, t)
	}
	return buckets
}

// PlanAuto returns one context per hostname with at least two tabs.
func (o *Organizer) PlanAuto(tabs []types.Tab) []types.Context {
	var out []types.Context
	for _, b := range o.Buckets(tabs) {
		if len(b.Tabs) < 2 {
			continue
		}
		out = append(out, o.domainContext(b, TagAuto))
	}
	return out
}

// PlanSmart returns the priority context, when any tab is pinned, active or
// on an important domain, followed by one context per non-important
// hostname with at least two tabs.
func (o *Organizer) PlanSmart(tabs []types.Tab) []types.Context {
	var priority, rest []types.Tab
	for _, t := range tabs {
		host, err := o.classifier.Host(t.URL)
		if err != nil {
			continue
		}
		isPriority := t.Pinned || t.Active || o.classifier.IsImportant(host)
		if isPriority {
			priority = append(priority, t)
		}
		if isPriority && o.opts.ExcludePriorityFromDomains {
			continue
		}
		rest = append(rest, t)
	}

	var out []types.Context
	if len(priority) > 0 {
		out = append(out, types.Context{
			Name:     fmt.Sprintf("Priority Tabs (%d tabs)", len(priority)),
			Category: types.CategoryWork,
			Tags:     []string{TagPriority, TagImportant, TagSmart},
			Tabs:     types.SavedTabs(priority),
		})
	}
	for _, b := range o.Buckets(rest) {
		if len(b.Tabs) < 2 || o.classifier.IsImportant(b.Host) {
			continue
		}
		out = append(out, o.domainContext(b, TagSmart))
	}
	return out
}

// Auto persists PlanAuto's contexts and returns the saved records.
func (o *Organizer) Auto(tabs []types.Tab) ([]types.Context, error) {
	saved, err := o.persist(o.PlanAuto(tabs))
	applog.Info("organize.auto", "tabs", len(tabs), "contexts", len(saved))
	return saved, err
}

// Smart persists PlanSmart's contexts and returns the saved records.
func (o *Organizer) Smart(tabs []types.Tab) ([]types.Context, error) {
	saved, err := o.persist(o.PlanSmart(tabs))
	applog.Info("organize.smart", "tabs", len(tabs), "contexts", len(saved))
	return saved, err
}

// persist saves plans in order and stops at the first failure. Contexts
// saved before the failure stay saved and are returned alongside the error.
func (o *Organizer) persist(plans []types.Context) ([]types.Context, error) {
	if o.saver == nil {
		return nil, fmt.Errorf("organize: no saver configured")
	}
	saved := make([]types.Context, 0, len(plans))
	for _, c := range plans {
		s, err := o.saver.Save(c)
		if err != nil {
			return saved, fmt.Errorf("save %q: %w", c.Name, err)
		}
		saved = append(saved, s)
	}
	return saved, nil
}

func (o *Organizer) domainContext(b Bucket, tag string) types.Context {
	return types.Context{
		Name:     fmt.Sprintf("%s (%d tabs)", b.Host, len(b.Tabs)),
		Category: o.classifier.CategoryOf(b.Host),
		Tags:     []string{b.Host, tag},
		Tabs:     types.SavedTabs(b.Tabs),
	}
}

package browser

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"odmcheck/internal/acquire"
	"odmcheck/internal/catalog"
	"odmcheck/internal/keybuild"
)

// chartMenuSelector finds the per-chart "Save & share" dropdowns.
const chartMenuSelector = "div[role='combobox'][aria-label='Save & share']"

// resourceAnchorXPath finds resource download anchors inside the active tab
// panel, so a section only sees its own resources.
const resourceAnchorXPath = "//div[@role='tabpanel' and not(@hidden)]//a[.//span[contains(normalize-space(.), 'Download')]]"

// OpenSection clicks the section's tab, falling back to a plain text click
// when the tab role lookup fails (the portal has rendered both variants).
func (s *Session) OpenSection(ctx context.Context, section catalog.Section) error {
	if err := s.alive(ctx); err != nil {
		return err
	}

	nav := s.cfg.Browser.NavigationTimeout()
	el, err := s.page.Timeout(nav).ElementR("[role='tab']", "^"+regexp.QuoteMeta(section.Name)+"$")
	if err != nil {
		el, err = s.page.Timeout(nav).ElementR("a, button, span", regexp.QuoteMeta(section.Name))
		if err != nil {
			return fmt.Errorf("tab %q not found: %w", section.Name, err)
		}
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click tab %q: %w", section.Name, err)
	}

	s.settle()
	s.logger.Info("section opened", zap.String("section", section.Name))
	return nil
}

// ListSubEntities returns the iterable units of a section: the dimension
// labels for the Dimensions tab, the participant countries elsewhere.
func (s *Session) ListSubEntities(ctx context.Context, section catalog.Section) ([]string, error) {
	if err := s.alive(ctx); err != nil {
		return nil, err
	}

	if section.Name == "Dimensions" {
		return append([]string(nil), s.dimensions...), nil
	}

	labels := make([]string, len(s.countries))
	for i, c := range s.countries {
		labels[i] = c.Name
	}
	return labels, nil
}

// AcquireArtifact executes one acquisition request. Individual download
// failures inside a request are logged and skipped; the request itself only
// fails when nothing about it could proceed.
func (s *Session) AcquireArtifact(ctx context.Context, section catalog.Section, desc acquire.ArtifactDescriptor) ([]string, error) {
	if err := s.alive(ctx); err != nil {
		return nil, err
	}

	if desc.SubEntity != "" {
		if err := s.selectSubEntity(section, desc.SubEntity); err != nil {
			return nil, err
		}
	}

	destDir := filepath.Join(s.outputRoot, section.DirName())
	switch desc.Kind {
	case acquire.Chart:
		return s.acquireCharts(destDir, desc.SubEntity)
	case acquire.Resource:
		return s.acquireResources(destDir, desc.SubEntity)
	default:
		return nil, fmt.Errorf("unknown artifact kind %v", desc.Kind)
	}
}

// selectSubEntity clicks the dimension or country selector button.
func (s *Session) selectSubEntity(section catalog.Section, label string) error {
	var selector string
	if section.Name == "Dimensions" {
		selector = fmt.Sprintf("button[id='dimension_%s']", strings.ToLower(label))
	} else {
		code, ok := s.countryCode[label]
		if !ok {
			return fmt.Errorf("no country code for %q", label)
		}
		selector = fmt.Sprintf("button[id='country_%s']", code)
	}

	el, err := s.page.Timeout(s.cfg.Browser.NavigationTimeout()).Element(selector)
	if err != nil {
		return fmt.Errorf("selector button for %q not found: %w", label, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("select %q: %w", label, err)
	}
	s.settle()
	return nil
}

// acquireCharts walks every visible Save & share menu on the current view
// and triggers each export option, saving the results under destDir. When
// subEntity is set, saved filenames are prefixed with its identifier so the
// validator can attribute them.
func (s *Session) acquireCharts(destDir, subEntity string) ([]string, error) {
	menus, err := s.page.Timeout(s.cfg.Browser.NavigationTimeout()).Elements(chartMenuSelector)
	if err != nil {
		return nil, fmt.Errorf("chart menus: %w", err)
	}
	if len(menus) == 0 {
		return nil, fmt.Errorf("no chart menus on current view")
	}

	var saved []string
	for i, menu := range menus {
		if visible, err := menu.Visible(); err != nil || !visible {
			continue
		}
		if err := menu.ScrollIntoView(); err != nil {
			s.logger.Warn("chart not scrollable", zap.Int("chart", i), zap.Error(err))
			continue
		}

		for _, option := range acquire.ChartExportOptions {
			dest, err := s.exportChart(menu, option, destDir)
			if err != nil {
				s.logger.Warn("chart export failed",
					zap.Int("chart", i),
					zap.String("option", option),
					zap.Error(err))
				// Close any menu left open before the next option.
				_ = s.page.Keyboard.Press(input.Escape)
				continue
			}
			if subEntity != "" {
				dest, err = renameForSubEntity(dest, subEntity)
				if err != nil {
					s.logger.Warn("chart rename failed", zap.Error(err))
					continue
				}
			}
			saved = append(saved, dest)
			s.logger.Debug("chart exported", zap.String("file", dest))
		}
	}
	return saved, nil
}

// exportChart opens one chart menu and clicks one export option inside the
// listbox it reveals.
func (s *Session) exportChart(menu *rod.Element, option, destDir string) (string, error) {
	return s.download(destDir, "", func() error {
		if err := menu.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("open menu: %w", err)
		}
		item, err := s.page.Timeout(s.cfg.Browser.SettleDelay()*3).
			ElementR("ul[role='listbox'] li", regexp.QuoteMeta(option))
		if err != nil {
			return fmt.Errorf("option %q not in listbox: %w", option, err)
		}
		return item.Click(proto.InputMouseButtonLeft, 1)
	})
}

// resourceLink is one discovered resource anchor.
type resourceLink struct {
	href     string
	filename string // the anchor's download attribute, may be empty
}

// acquireResources downloads the resources the active tab panel links to.
// When subEntity is set, only resources belonging to it are taken; the
// portal encodes ownership in the filename, so membership is decided on the
// derived keys rather than on positional index ranges.
func (s *Session) acquireResources(destDir, subEntity string) ([]string, error) {
	links, err := s.listResourceLinks()
	if err != nil {
		return nil, err
	}

	if subEntity != "" {
		links = filterBySubEntity(links, subEntity)
	}

	var saved []string
	for _, link := range links {
		dest, err := s.fetchResource(destDir, subEntity, link)
		if err != nil {
			s.logger.Warn("resource download failed",
				zap.String("href", link.href),
				zap.Error(err))
			continue
		}
		saved = append(saved, dest)
		s.logger.Debug("resource saved", zap.String("file", dest))
	}
	return saved, nil
}

// listResourceLinks collects the download anchors of the active panel,
// de-duplicated by href with first occurrence kept.
func (s *Session) listResourceLinks() ([]resourceLink, error) {
	anchors, err := s.page.Timeout(s.cfg.Browser.NavigationTimeout()).ElementsX(resourceAnchorXPath)
	if err != nil {
		return nil, fmt.Errorf("resource anchors: %w", err)
	}

	seen := make(map[string]bool)
	var links []resourceLink
	for _, a := range anchors {
		href, err := a.Attribute("href")
		if err != nil || href == nil || *href == "" {
			continue
		}
		if seen[*href] {
			continue
		}
		seen[*href] = true

		link := resourceLink{href: *href}
		if dl, err := a.Attribute("download"); err == nil && dl != nil {
			link.filename = *dl
		}
		links = append(links, link)
	}
	return links, nil
}

// filterBySubEntity keeps the links whose filename stem contains the
// sub-entity's derived key ("2024_odm_factsheet_austria_0.pdf" belongs to
// Austria; "2024_odm_policy_recommendations.pdf" to the Policy dimension).
func filterBySubEntity(links []resourceLink, subEntity string) []resourceLink {
	subKey, err := keybuild.Build(subEntity)
	if err != nil {
		return nil
	}

	var out []resourceLink
	for _, link := range links {
		stem := linkStem(link)
		stemKey, err := keybuild.Build(strings.ReplaceAll(stem, "_", " "))
		if err != nil {
			continue
		}
		if strings.Contains(string(stemKey), string(subKey)) {
			out = append(out, link)
		}
	}
	return out
}

func linkStem(link resourceLink) string {
	name := link.filename
	if name == "" {
		name = link.href
		if u, err := url.Parse(link.href); err == nil && u.Path != "" {
			name = path.Base(u.Path)
		}
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

// fetchResource downloads one resource, or materializes the ODM placeholder
// for proxied PDFs: the portal serves those links as empty proxy documents,
// so an empty file under the anchor's download name stands in for them.
func (s *Session) fetchResource(destDir, subEntity string, link resourceLink) (string, error) {
	name := link.filename
	if name == "" {
		name = path.Base(link.href)
	}
	name = subEntityFilename(subEntity, name)

	if strings.EqualFold(path.Ext(link.href), ".pdf") {
		return s.placeholderPDF(destDir, name)
	}

	return s.download(destDir, name, func() error {
		el, err := s.page.Timeout(s.cfg.Browser.NavigationTimeout()).
			Element(fmt.Sprintf("a[href=%q]", link.href))
		if err != nil {
			return fmt.Errorf("anchor not found: %w", err)
		}
		return el.Click(proto.InputMouseButtonLeft, 1)
	})
}

// placeholderPDF materializes an empty stand-in file for a proxied PDF.
func (s *Session) placeholderPDF(destDir, name string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(destDir, name)
	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return dest, nil
}

// renameForSubEntity moves a saved file to its sub-entity-prefixed name.
func renameForSubEntity(dest, subEntity string) (string, error) {
	name := subEntityFilename(subEntity, filepath.Base(dest))
	if name == filepath.Base(dest) {
		return dest, nil
	}
	renamed := filepath.Join(filepath.Dir(dest), name)
	if err := os.Rename(dest, renamed); err != nil {
		return "", err
	}
	return renamed, nil
}

// subEntityFilename prefixes the sub-entity identifier when the filename
// does not already carry it, so section directories stay attributable.
func subEntityFilename(subEntity, name string) string {
	if subEntity == "" {
		return name
	}
	subKey, err := keybuild.Build(subEntity)
	if err != nil {
		return name
	}
	nameKey, err := keybuild.Build(strings.ReplaceAll(name, "_", " "))
	if err == nil && strings.Contains(string(nameKey), string(subKey)) {
		return name
	}
	return string(subKey) + "_" + name
}

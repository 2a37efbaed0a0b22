// Package browser drives the ODM portal through a controlled Chrome
// instance and implements the acquisition collaborator the orchestrator
// consumes. It owns the single shared page; callers sequence their requests.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"odmcheck/internal/acquire"
	"odmcheck/internal/catalog"
	"odmcheck/internal/config"
)

// Session is a logged-in portal page plus the browser that hosts it.
type Session struct {
	cfg        *config.Config
	logger     *zap.Logger
	browser    *rod.Browser
	page       *rod.Page
	outputRoot string
	partialDir string

	countryCode map[string]string
	countries   []catalog.Country
	dimensions  []string
}

// NewSession launches Chrome, authenticates against the portal and opens the
// edition page. Auth rejection and connection failures wrap
// acquire.ErrSessionLost so the orchestrator knows the run cannot continue.
func NewSession(cfg *config.Config, edition catalog.Edition, countries []catalog.Country, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	controlURL, err := launcher.New().Headless(cfg.Browser.Headless).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w: %w", err, acquire.ErrSessionLost)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w: %w", err, acquire.ErrSessionLost)
	}

	// The DEV portal sits behind HTTP basic auth; the prompt is answered
	// for every origin the page touches.
	if cfg.Credentials.Username != "" {
		go func() {
			_ = b.HandleAuth(cfg.Credentials.Username, cfg.Credentials.Password)()
		}()
	}

	s := &Session{
		cfg:         cfg,
		logger:      logger,
		browser:     b,
		outputRoot:  cfg.OutputDir,
		partialDir:  filepath.Join(cfg.OutputDir, ".partial"),
		countryCode: make(map[string]string, len(countries)),
		countries:   countries,
		dimensions:  edition.Dimensions,
	}
	for _, c := range countries {
		s.countryCode[c.Name] = c.Code
	}

	if err := s.openPortal(); err != nil {
		_ = b.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) openPortal() error {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("create page: %w: %w", err, acquire.ErrSessionLost)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.Browser.ViewportWidth,
		Height:            s.cfg.Browser.ViewportHeight,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		s.logger.Warn("failed to set viewport", zap.Error(err))
	}

	nav := s.cfg.Browser.NavigationTimeout()
	url := s.cfg.PortalURL()
	if err := page.Timeout(nav).Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w: %w", url, err, acquire.ErrSessionLost)
	}
	if err := page.Timeout(nav).WaitLoad(); err != nil {
		return fmt.Errorf("load %s: %w: %w", url, err, acquire.ErrSessionLost)
	}

	s.page = page
	s.logger.Info("portal loaded", zap.String("url", url))
	s.dismissOverlays()
	return nil
}

// dismissOverlays closes the newsletter popup and the cookie-consent banner
// when present. Both are best-effort; their absence is the usual case.
func (s *Session) dismissOverlays() {
	if err := s.clickIfPresent("button.close", ""); err == nil {
		s.logger.Debug("newsletter banner closed")
	}
	if err := s.clickIfPresent("button", "Accept only essential cookies"); err == nil {
		s.logger.Debug("cookie banner dismissed")
	}
}

// clickIfPresent clicks the first element matching the selector (and text
// pattern, when given) within a short window.
func (s *Session) clickIfPresent(selector, text string) error {
	p := s.page.Timeout(3 * time.Second)
	var el *rod.Element
	var err error
	if text == "" {
		el, err = p.Element(selector)
	} else {
		el, err = p.ElementR(selector, regexp.QuoteMeta(text))
	}
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// settle pauses while the SPA re-renders after an interaction.
func (s *Session) settle() {
	time.Sleep(s.cfg.Browser.SettleDelay())
}

// download arms the browser's download capture, runs trigger and waits for
// the resulting file, bounded by the configured download timeout. The saved
// file is moved from the staging dir into destDir under filename.
func (s *Session) download(destDir, filename string, trigger func() error) (string, error) {
	if err := os.MkdirAll(s.partialDir, 0o755); err != nil {
		return "", err
	}
	wait := s.browser.WaitDownload(s.partialDir)

	if err := trigger(); err != nil {
		return "", err
	}

	infoCh := make(chan *proto.PageDownloadWillBegin, 1)
	go func() { infoCh <- wait() }()

	var info *proto.PageDownloadWillBegin
	select {
	case info = <-infoCh:
	case <-time.After(s.cfg.Browser.DownloadTimeout()):
		return "", fmt.Errorf("download timed out after %s", s.cfg.Browser.DownloadTimeout())
	}
	if info == nil {
		return "", fmt.Errorf("no download was started")
	}

	if filename == "" {
		filename = info.SuggestedFilename
	}
	if filename == "" {
		filename = info.GUID
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(destDir, filename)
	if err := os.Rename(filepath.Join(s.partialDir, info.GUID), dest); err != nil {
		return "", fmt.Errorf("move download: %w", err)
	}
	return dest, nil
}

// alive verifies the browser connection is still usable.
func (s *Session) alive(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.browser.Version(); err != nil {
		return fmt.Errorf("browser gone: %w: %w", err, acquire.ErrSessionLost)
	}
	return nil
}

// Close shuts the page and browser down.
func (s *Session) Close() error {
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		err := s.browser.Close()
		s.browser = nil
		return err
	}
	return nil
}

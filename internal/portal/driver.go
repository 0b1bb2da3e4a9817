package portal

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// Credentials is the counselor's portal login, typed into the form before the
// human completes the portal's own verification step.
type Credentials struct {
	Username string
	Password string
}

// Config controls one ChromeDriver instance.
type Config struct {
	BaseURL     string
	Headless    bool
	Credentials Credentials

	// InstitutionCode picks the school on the institution screen. Empty
	// selects the first (and for most counselors only) row.
	InstitutionCode string

	LaunchTimeout time.Duration
	LoginTimeout  time.Duration
	StepTimeout   time.Duration
	SubmitTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.LaunchTimeout <= 0 {
		c.LaunchTimeout = 30 * time.Second
	}
	if c.LoginTimeout <= 0 {
		c.LoginTimeout = 2 * time.Minute
	}
	if c.StepTimeout <= 0 {
		c.StepTimeout = 15 * time.Second
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 20 * time.Second
	}
}

// ChromeDriver owns exactly one headless Chrome for the lifetime of a single
// transfer. The browser is acquired in Initialize and released in Close on
// every exit path; the caller never touches the browser handle directly.
type ChromeDriver struct {
	cfg Config

	ctx           context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	closeOnce     sync.Once
}

// NewChromeDriver creates a driver. The browser is not launched until
// Initialize is called.
func NewChromeDriver(cfg Config) *ChromeDriver {
	cfg.applyDefaults()
	return &ChromeDriver{cfg: cfg}
}

// Initialize launches the browser, loads the portal login page and prefills
// the counselor's credentials. Any failure here is fatal: without a browser
// on the login page no item can be processed.
func (d *ChromeDriver) Initialize(ctx context.Context) error {
	if err := Preflight(ctx, d.cfg.BaseURL); err != nil {
		return err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1366, 768),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	d.ctx = browserCtx
	d.browserCancel = browserCancel
	d.allocCancel = allocCancel

	err := d.run(d.cfg.LaunchTimeout,
		chromedp.Navigate(d.cfg.BaseURL+loginPath),
		chromedp.WaitVisible(selLoginUsername, chromedp.ByQuery),
		chromedp.SendKeys(selLoginUsername, d.cfg.Credentials.Username, chromedp.ByQuery),
		chromedp.SendKeys(selLoginPassword, d.cfg.Credentials.Password, chromedp.ByQuery),
	)
	if err != nil {
		d.Close()
		return fmt.Errorf("browser launch failed: %w", err)
	}

	log.Printf("Browser launched, portal login page loaded (%s)", d.cfg.BaseURL)
	return nil
}

// WaitForLogin submits the prefilled login form and blocks until the portal's
// post-login page is reachable. The portal's verification step (SMS or
// e-Devlet) is performed by a human in the meantime; exceeding the login
// timeout is fatal.
func (d *ChromeDriver) WaitForLogin(ctx context.Context) error {
	if err := d.run(d.cfg.StepTimeout,
		chromedp.Click(selLoginButton, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}

	log.Printf("Waiting up to %v for portal login confirmation...", d.cfg.LoginTimeout)

	if err := d.run(d.cfg.LoginTimeout,
		chromedp.WaitVisible(selPortalHome, chromedp.ByQuery),
	); err != nil {
		if ctx.Err() != nil {
			// Cancelled by the caller, not timed out; the manager tells the two apart.
			return fmt.Errorf("login wait interrupted: %w", ctx.Err())
		}
		return fmt.Errorf("portal login not confirmed within %v: %w", d.cfg.LoginTimeout, err)
	}

	return nil
}

// NavigateToDataEntry walks the fixed UI path from the portal home to the
// interview entry screen. Any step failing is fatal.
func (d *ChromeDriver) NavigateToDataEntry(ctx context.Context) error {
	for _, step := range navigationPath {
		click := step.click
		if step.name == stepSelectInstitution && d.cfg.InstitutionCode != "" {
			click = institutionLink(d.cfg.InstitutionCode)
		}
		err := d.run(d.cfg.StepTimeout,
			chromedp.Click(click, chromedp.ByQuery),
			chromedp.WaitVisible(step.waitFor, chromedp.ByQuery),
		)
		if err != nil {
			return fmt.Errorf("navigation step %q failed: %w", step.name, err)
		}
		log.Printf("Navigation: %s", step.name)
	}
	return nil
}

// SubmitItem submits one interview record. Ordinary problems (student not
// found, a field refusing input, the portal rejecting the save) are returned
// as a failed outcome so the batch can continue; an error return means the
// browser session itself is unusable.
func (d *ChromeDriver) SubmitItem(ctx context.Context, fields SessionFields) (SessionOutcome, error) {
	outcome := SessionOutcome{SessionRef: fields.SessionRef}

	// Locate the student record
	err := d.run(d.cfg.StepTimeout,
		chromedp.SetValue(selStudentSearchBox, fields.StudentNationalID, chromedp.ByQuery),
		chromedp.Click(selStudentSearchButton, chromedp.ByQuery),
		chromedp.WaitVisible(selStudentResultRow, chromedp.ByQuery),
	)
	if err != nil {
		return d.itemFailure(outcome, fmt.Sprintf("student %s not found on portal", fields.StudentNationalID), err)
	}

	if err := d.run(d.cfg.StepTimeout,
		chromedp.Click(selStudentResultRow, chromedp.ByQuery),
		chromedp.WaitVisible(selFieldDate, chromedp.ByQuery),
	); err != nil {
		return d.itemFailure(outcome, "could not open interview form", err)
	}

	// Populate the form in the portal's required order
	formFills := []struct {
		name  string
		sel   string
		value string
	}{
		{"date", selFieldDate, fields.SessionDate},
		{"work area", selFieldWorkArea, fields.WorkArea},
		{"topic", selFieldTopic, fields.Topic},
		{"method", selFieldMethod, fields.Method},
		{"summary", selFieldSummary, fields.Summary},
	}
	for _, f := range formFills {
		if err := d.run(d.cfg.StepTimeout,
			chromedp.WaitVisible(f.sel, chromedp.ByQuery),
			chromedp.SetValue(f.sel, f.value, chromedp.ByQuery),
		); err != nil {
			return d.itemFailure(outcome, fmt.Sprintf("failed to fill %s field", f.name), err)
		}
	}

	// Submit and read back the portal's confirmation text
	var confirmation string
	err = d.run(d.cfg.SubmitTimeout,
		chromedp.Click(selSaveButton, chromedp.ByQuery),
		chromedp.WaitVisible(selConfirmation, chromedp.ByQuery),
		chromedp.Text(selConfirmation, &confirmation, chromedp.ByQuery),
	)
	if err != nil {
		return d.itemFailure(outcome, "save not confirmed by portal", err)
	}

	confirmation = strings.TrimSpace(confirmation)
	if isPortalRejection(confirmation) {
		outcome.Error = fmt.Sprintf("portal rejected submission: %s", confirmation)
		return outcome, nil
	}

	outcome.Success = true
	outcome.Confirmation = confirmation
	return outcome, nil
}

// isPortalRejection classifies the confirmation label's text. The portal
// reuses one label for both success and error messages.
func isPortalRejection(confirmation string) bool {
	lower := strings.ToLower(confirmation)
	return strings.Contains(lower, "hata") || strings.Contains(lower, "başarısız")
}

// itemFailure converts a step error into a non-fatal outcome, unless the
// browser session itself is no longer usable.
func (d *ChromeDriver) itemFailure(outcome SessionOutcome, msg string, err error) (SessionOutcome, error) {
	if d.broken() {
		return outcome, fmt.Errorf("browser session lost: %w", err)
	}
	outcome.Error = fmt.Sprintf("%s: %v", msg, err)
	return outcome, nil
}

// broken reports whether the browser context is dead (crashed, closed, or the
// job was cancelled).
func (d *ChromeDriver) broken() bool {
	return d.ctx == nil || d.ctx.Err() != nil
}

// run executes chromedp actions against the browser with a bounded wait.
func (d *ChromeDriver) run(timeout time.Duration, actions ...chromedp.Action) error {
	if d.ctx == nil {
		return fmt.Errorf("driver not initialized")
	}
	tctx, cancel := context.WithTimeout(d.ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, actions...)
}

// Close tears down the browser. Idempotent and safe to call on any exit path,
// including after a fatal error or cancellation.
func (d *ChromeDriver) Close() error {
	d.closeOnce.Do(func() {
		if d.browserCancel != nil {
			d.browserCancel()
		}
		if d.allocCancel != nil {
			d.allocCancel()
		}
		log.Println("Browser closed")
	})
	return nil
}

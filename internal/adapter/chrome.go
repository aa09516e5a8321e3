package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/chromedp"
)

type ChromeOptions struct {
	// RemoteURL connects to an already running browser's devtools websocket
	// instead of spawning one, ex. `ws://127.0.0.1:9222`.
	RemoteURL string
	// ExecPath overrides the browser binary, empty lets chromedp search for one.
	ExecPath  string
	UserAgent string
	// Headful shows the browser window, useful when tuning selectors.
	Headful bool
}

// Chrome is the chromedp implementation of Browser, one tab for the whole run.
type Chrome struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

func NewChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	var allocCtx context.Context
	var cancelAlloc context.CancelFunc

	if opts.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		userAgent := opts.UserAgent
		if userAgent == "" {
			userAgent = DefaultUserAgent
		}
		allocOpts := append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserAgent(userAgent),
			chromedp.WindowSize(1920, 1080),
			chromedp.NoSandbox,
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("headless", !opts.Headful),
		)
		if opts.ExecPath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
		}
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(ctx, allocOpts...)
	}

	tab, cancelTab := chromedp.NewContext(allocCtx)
	// the first Run starts the browser
	err := chromedp.Run(tab)
	if err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &Chrome{tab: tab, cancelTab: cancelTab, cancelAlloc: cancelAlloc}, nil
}

// run executes actions on the tab while honoring the caller's deadline and cancellation.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := c.tab
	var cancel context.CancelFunc
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(runCtx, deadline)
	} else {
		runCtx, cancel = context.WithCancel(runCtx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) WaitReady(ctx context.Context, selector string) error {
	err := c.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrMissingElement, selector, err)
	}
	return err
}

func (c *Chrome) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := c.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery, chromedp.NodeVisible))
	return text, err
}

func (c *Chrome) Evaluate(ctx context.Context, js string, out any) error {
	return c.run(ctx, chromedp.Evaluate(js, out))
}

func (c *Chrome) Close() error {
	c.cancelTab()
	c.cancelAlloc()
	return nil
}

package webpage

import (
	"context"
	"encoding/base64"
	"fmt"
	"ratewatch-backend/lib/sources"
	"ratewatch-backend/lib/telemetry"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

type BrowserOptions struct {
	// ControlURL connects to a running browser instead of launching one.
	ControlURL string
	// Bin is the chromium binary, downloaded by rod when empty.
	Bin      string
	Headless bool
	Timeout  time.Duration
	// WaitSelector is a css selector that must exist before the page is read.
	WaitSelector string
	// MaxPayloads bounds the number of captured json responses.
	MaxPayloads int
}

// BrowserFetcher renders pages in headless chromium.
type BrowserFetcher struct {
	opts BrowserOptions
	tel  telemetry.API

	mutex    sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

func NewBrowserFetcher(opts BrowserOptions, tel telemetry.API) *BrowserFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 45
	}
	if opts.MaxPayloads == 0 {
		opts.MaxPayloads = 32
	}
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	return &BrowserFetcher{
		opts: opts,
		tel:  telemetry.NewScopedAPI("browser", tel),
	}
}

func (f *BrowserFetcher) ensureStarted() (*rod.Browser, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.browser != nil {
		return f.browser, nil
	}

	controlURL := f.opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(f.opts.Headless)
		if f.opts.Bin != "" {
			l = l.Bin(f.opts.Bin)
		}
		url, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chromium: %w", err)
		}
		controlURL = url
		f.launcher = l
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		if f.launcher != nil {
			f.launcher.Cleanup()
			f.launcher = nil
		}
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}
	f.browser = browser
	return browser, nil
}

// Close closes the browser, a launched chromium process is killed.
func (f *BrowserFetcher) Close() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	var err error
	if f.browser != nil {
		err = f.browser.Close()
		f.browser = nil
	}
	if f.launcher != nil {
		f.launcher.Cleanup()
		f.launcher = nil
	}
	return err
}

type capturedResponses struct {
	mutex    sync.Mutex
	status   int
	finalUrl string
	jsonIds  []proto.NetworkRequestID
}

func (c *capturedResponses) record(ev *proto.NetworkResponseReceived, max int) {
	if ev.Response == nil {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if ev.Type == proto.NetworkResourceTypeDocument && c.status == 0 {
		c.status = ev.Response.Status
		c.finalUrl = ev.Response.URL
	}
	if strings.Contains(ev.Response.MIMEType, "json") && len(c.jsonIds) < max {
		c.jsonIds = append(c.jsonIds, ev.RequestID)
	}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, rawUrl string) (Document, error) {
	if _, err := validateURL(rawUrl); err != nil {
		return Document{}, err
	}
	browser, err := f.ensureStarted()
	if err != nil {
		return Document{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return Document{}, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return Document{}, fmt.Errorf("enable network events: %w", err)
	}

	captured := &capturedResponses{}
	listenCtx, stopListening := context.WithCancel(ctx)
	wait := page.Context(listenCtx).EachEvent(func(ev *proto.NetworkResponseReceived) {
		captured.record(ev, f.opts.MaxPayloads)
	})
	go wait()
	defer stopListening()

	if err := page.Navigate(rawUrl); err != nil {
		return Document{}, fmt.Errorf("navigate to %s: %w", rawUrl, err)
	}
	if err := page.WaitLoad(); err != nil {
		return Document{}, fmt.Errorf("wait load: %w", err)
	}
	if f.opts.WaitSelector != "" {
		if _, err := page.Element(f.opts.WaitSelector); err != nil {
			return Document{}, fmt.Errorf("wait for %q: %w", f.opts.WaitSelector, err)
		}
	}
	stopListening()

	html, err := page.HTML()
	if err != nil {
		return Document{}, fmt.Errorf("read rendered html: %w", err)
	}

	captured.mutex.Lock()
	defer captured.mutex.Unlock()

	doc := Document{
		URL:         rawUrl,
		FinalURL:    captured.finalUrl,
		Status:      captured.status,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(html),
	}
	if doc.FinalURL == "" {
		doc.FinalURL = rawUrl
	}
	if doc.Status >= 400 {
		return Document{}, &sources.StatusError{Source: rawUrl, Code: doc.Status}
	}

	for _, id := range captured.jsonIds {
		body, err := proto.NetworkGetResponseBody{RequestID: id}.Call(page)
		if err != nil {
			f.tel.ReportDebug("skipping json response", id, err)
			continue
		}
		payload := []byte(body.Body)
		if body.Base64Encoded {
			payload, err = base64.StdEncoding.DecodeString(body.Body)
			if err != nil {
				f.tel.ReportWarning("decode-json-response", id, err)
				continue
			}
		}
		doc.JSONPayloads = append(doc.JSONPayloads, payload)
	}
	f.tel.ReportCount("json-payloads", int64(len(doc.JSONPayloads)))

	return doc, nil
}

var _ Fetcher = (*BrowserFetcher)(nil)

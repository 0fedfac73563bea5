package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/sentinelid/backend/internal/config"
	"github.com/sentinelid/backend/internal/session"
)

const screenshotQuality = 80

// pageHandle implements session.Page over a dedicated Chromium instance.
type pageHandle struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// launch starts a fresh sandboxed browser and opens a blank page in an
// incognito context. The caller is responsible for viewport and
// navigation.
func launch(ctx context.Context, cfg config.BrowserConfig) (*pageHandle, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}

	incognito, err := b.Incognito()
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("create page: %w", err)
	}

	return &pageHandle{launcher: l, browser: b, page: page}, nil
}

func (p *pageHandle) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return err
	}
	return pg.WaitLoad()
}

func (p *pageHandle) SetViewport(ctx context.Context, width, height int) error {
	return proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}.Call(p.page.Context(ctx))
}

func (p *pageHandle) Screenshot(ctx context.Context) ([]byte, error) {
	quality := screenshotQuality
	return p.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: &quality,
	})
}

func (p *pageHandle) Title(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (p *pageHandle) ElementAt(ctx context.Context, x, y int) (*session.Element, error) {
	res, err := p.page.Context(ctx).Eval(`(x, y) => {
		const el = document.elementFromPoint(x, y);
		if (!el) {
			return { found: false };
		}
		const r = el.getBoundingClientRect();
		return {
			found: true,
			tagName: el.tagName,
			id: el.id || '',
			className: typeof el.className === 'string' ? el.className : '',
			rect: { left: r.left, top: r.top, width: r.width, height: r.height },
		};
	}`, x, y)
	if err != nil {
		return nil, err
	}
	if !res.Value.Get("found").Bool() {
		return nil, nil
	}
	return &session.Element{
		TagName:   res.Value.Get("tagName").Str(),
		ID:        res.Value.Get("id").Str(),
		ClassName: res.Value.Get("className").Str(),
		Rect: session.Rect{
			Left:   res.Value.Get("rect").Get("left").Num(),
			Top:    res.Value.Get("rect").Get("top").Num(),
			Width:  res.Value.Get("rect").Get("width").Num(),
			Height: res.Value.Get("rect").Get("height").Num(),
		},
	}, nil
}

func (p *pageHandle) MoveMouse(ctx context.Context, x, y int) error {
	return p.page.Context(ctx).Mouse.MoveTo(proto.Point{X: float64(x), Y: float64(y)})
}

func (p *pageHandle) Click(ctx context.Context, x, y int) error {
	pg := p.page.Context(ctx)
	if err := pg.Mouse.MoveTo(proto.Point{X: float64(x), Y: float64(y)}); err != nil {
		return err
	}
	return pg.Mouse.Click(proto.InputMouseButtonLeft, 1)
}

func (p *pageHandle) Type(ctx context.Context, text string) error {
	return p.page.Context(ctx).InsertText(text)
}

func (p *pageHandle) Scroll(ctx context.Context, deltaY int) error {
	_, err := p.page.Context(ctx).Eval(`(dy) => window.scrollBy(0, dy)`, deltaY)
	return err
}

// Close tears down in reverse-acquisition order: page, then browser,
// then the launcher's process and temp profile.
func (p *pageHandle) Close(ctx context.Context) error {
	var firstErr error
	if err := p.page.Context(ctx).Close(); err != nil {
		firstErr = err
	}
	if err := p.browser.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	p.launcher.Cleanup()
	return firstErr
}

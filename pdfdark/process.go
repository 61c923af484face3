package pdfdark

import (
	"bytes"
	"fmt"
	"runtime"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"duskpdf/contentstream"
	"duskpdf/theme"
)

// Process converts input, a complete PDF document, to a dark-mode rendition
// using the named theme, and returns the resulting bytes.
//
// themeID is matched case-sensitively against the six built-in themes; an
// unknown ID falls back to "classic" with no error. Process never mutates
// input.
func Process(input []byte, themeID string) ([]byte, error) {
	return ProcessWithLogger(input, themeID, zap.NewNop())
}

// ProcessWithLogger is Process with an injectable logger, used by the CLI
// and HTTP collaborators to send the pipeline's log output to their own
// logger.
func ProcessWithLogger(input []byte, themeID string, log *zap.Logger) ([]byte, error) {
	if log == nil {
		log = zap.NewNop()
	}
	th := theme.Resolve(themeID)
	log.Info("starting conversion", zap.String("theme", th.ID), zap.Int("input_bytes", len(input)))

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(input), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: determine page count: %v", ErrParse, err)
	}
	log.Debug("parsed document", zap.String("pdf_version", fmt.Sprint(ctx.HeaderVersion)), zap.Int("pages", ctx.PageCount))

	p := &pipeline{ctx: ctx, theme: th, log: log}
	if err := p.run(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := api.WriteContext(ctx, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	log.Info("conversion complete", zap.Int("output_bytes", out.Len()))
	return out.Bytes(), nil
}

// pipeline holds the per-document state shared by the page workers: the
// parsed object graph, the selected theme, and the form/pattern dedup
// walker. The only cross-page mutation is the final write of each page's
// own content object, serialized by writeMu.
type pipeline struct {
	ctx   *model.Context
	theme theme.Theme
	log   *zap.Logger

	writeMu sync.Mutex
}

func (p *pipeline) run() error {
	// Form XObjects and tiling patterns are shared across pages, so they
	// are deduplicated and rewritten single-threaded before the page fan
	// out begins.
	formRewriter := &contentstream.Rewriter{Theme: p.theme}
	walker := newFormWalker(p.ctx, formRewriter, p.log)
	for pageNum := 1; pageNum <= p.ctx.PageCount; pageNum++ {
		pageDict, _, inhAttrs, err := p.ctx.PageDict(pageNum, false)
		if err != nil {
			p.log.Debug("page dict unreadable during resource walk", zap.Int("page", pageNum), zap.Error(err))
			continue
		}
		if resources, err := p.pageResources(pageDict, inhAttrs); err == nil {
			walker.Walk(resources)
		}
	}

	group := new(errgroup.Group)
	group.SetLimit(max(1, runtime.GOMAXPROCS(0)))

	for pageNum := 1; pageNum <= p.ctx.PageCount; pageNum++ {
		pageNum := pageNum
		group.Go(func() error {
			p.processPage(pageNum)
			return nil // page-level failures never abort the whole document
		})
	}
	// errgroup.Group.Wait only returns an error from a Go func; processPage
	// never surfaces one, so this always succeeds. It is still checked so a
	// future fatal (document-level) condition has somewhere to propagate.
	return group.Wait()
}

// pageResources resolves a page's effective /Resources dictionary, falling
// back to the inherited attributes pdfcpu computed by walking the page tree.
func (p *pipeline) pageResources(pageDict types.Dict, inhAttrs *model.InheritedPageAttrs) (types.Dict, error) {
	if entry, found := pageDict.Find("Resources"); found {
		if d, err := dictFromObject(p.ctx, entry); err == nil {
			return d, nil
		}
	}
	if inhAttrs != nil && inhAttrs.Resources != nil {
		return inhAttrs.Resources, nil
	}
	return nil, fmt.Errorf("no resources")
}

// processPage rewrites one page's content stream(s) and prepends the
// background fill. Internal failures recover locally: a content stream that
// cannot be decoded or tokenized, or a panic during the rewrite, leaves the
// page with its original content plus the background fragment. A page whose
// dictionary or content object cannot be read at all is left untouched.
func (p *pipeline) processPage(pageNum int) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Debug("panic recovered while processing page; falling back", zap.Int("page", pageNum), zap.Any("panic", r))
			p.fallbackPage(pageNum)
		}
	}()

	pageDict, _, inhAttrs, err := p.ctx.PageDict(pageNum, false)
	if err != nil {
		p.log.Debug("page dict unreadable", zap.Int("page", pageNum), zap.Error(err))
		return
	}

	box := p.resolveMediaBox(pageDict, inhAttrs)
	resources, _ := p.pageResources(pageDict, inhAttrs)
	rewriter := &contentstream.Rewriter{
		Theme: p.theme,
		Resolve: func(name string) contentstream.DeviceSpace {
			return resolveColorSpace(p.ctx, resources, name)
		},
	}
	bg := contentstream.Background(p.theme, box.x0, box.y0, box.w, box.h)

	contentsEntry, found := pageDict.Find("Contents")
	if !found {
		p.writeBackgroundOnlyPage(pageDict, bg)
		return
	}

	switch contents := contentsEntry.(type) {
	case types.IndirectRef:
		p.rewriteSingleStreamPage(pageNum, pageDict, contents, rewriter, bg)
	case types.Array:
		p.rewriteArrayStreamPage(pageNum, pageDict, contents, rewriter, bg)
	default:
		p.log.Debug("unrecognized Contents entry type; leaving page untouched", zap.Int("page", pageNum))
	}
}

func (p *pipeline) rewriteSingleStreamPage(pageNum int, pageDict types.Dict, ref types.IndirectRef, rewriter *contentstream.Rewriter, bg []byte) {
	obj, err := p.ctx.Dereference(ref)
	if err != nil {
		p.log.Debug("content stream dereference failed", zap.Int("page", pageNum), zap.Error(err))
		return
	}
	sd, ok := obj.(types.StreamDict)
	if !ok {
		return
	}
	if err := sd.Decode(); err != nil {
		// The undecodable stream is kept as it is; the background goes into a
		// new first stream ahead of it.
		p.log.Debug("content stream decode failed; falling back", zap.Int("page", pageNum), zap.Error(err))
		bgRef, err := p.insertBackgroundStream(bg)
		if err != nil {
			p.log.Debug("could not insert background stream; page left without backdrop", zap.Int("page", pageNum), zap.Error(err))
			return
		}
		p.writeMu.Lock()
		pageDict["Contents"] = types.Array{*bgRef, ref}
		p.writeMu.Unlock()
		return
	}

	toks, err := contentstream.Tokenize(sd.Content)
	if err != nil {
		p.log.Debug("tokenize failed; falling back to original content", zap.Int("page", pageNum), zap.Error(err))
		p.writeRawContent(ref, sd, bg, sd.Content)
		return
	}

	rewritten := contentstream.Serialize(rewriter.Rewrite(toks))
	p.writeRawContent(ref, sd, bg, rewritten)
	_ = pageDict // pageDict identity unchanged for the single-stream case
}

// writeRawContent sets sd's content to bg followed by body (the rewritten
// bytes, or the original bytes on a recovered failure) and writes it back.
func (p *pipeline) writeRawContent(ref types.IndirectRef, sd types.StreamDict, bg, body []byte) {
	if body == nil {
		body = sd.Content
	}
	sd.Content = append(append([]byte{}, bg...), body...)
	if err := sd.Encode(); err != nil {
		p.log.Debug("re-encode failed; leaving stream untouched", zap.Error(err))
		return
	}
	sd.Dict["Length"] = types.Integer(len(sd.Raw))

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	entry, found := p.ctx.FindTableEntryForIndRef(&ref)
	if !found {
		p.log.Debug("missing xref entry for content stream")
		return
	}
	entry.Object = sd
}

// rewriteArrayStreamPage rewrites each stream in a content-stream array
// under one shared rewriter pass, so graphics-state and color-space
// tracking carries across stream boundaries as if the array were a single
// logical stream, then prepends the background as a brand-new first stream
// rather than mutating any existing one.
func (p *pipeline) rewriteArrayStreamPage(pageNum int, pageDict types.Dict, contents types.Array, rewriter *contentstream.Rewriter, bg []byte) {
	type streamEntry struct {
		ref types.IndirectRef
		sd  types.StreamDict
		ok  bool
	}

	streams := make([]streamEntry, len(contents))
	var joint []contentstream.Token
	segLens := make([]int, len(contents))

	for i, item := range contents {
		ref, ok := item.(types.IndirectRef)
		if !ok {
			continue
		}
		obj, err := p.ctx.Dereference(ref)
		if err != nil {
			p.log.Debug("array content stream dereference failed", zap.Int("page", pageNum), zap.Error(err))
			continue
		}
		sd, ok := obj.(types.StreamDict)
		if !ok {
			continue
		}
		if err := sd.Decode(); err != nil {
			p.log.Debug("array content stream decode failed", zap.Int("page", pageNum), zap.Error(err))
			continue
		}
		toks, err := contentstream.Tokenize(sd.Content)
		if err != nil {
			p.log.Debug("array content stream tokenize failed", zap.Int("page", pageNum), zap.Error(err))
			continue
		}
		streams[i] = streamEntry{ref: ref, sd: sd, ok: true}
		segLens[i] = len(toks)
		joint = append(joint, toks...)
	}

	rewrittenJoint := rewriter.Rewrite(joint)

	offset := 0
	newRefs := make([]types.Object, 0, len(contents)+1)
	for i, se := range streams {
		if !se.ok {
			newRefs = append(newRefs, contents[i])
			continue
		}
		seg := rewrittenJoint[offset : offset+segLens[i]]
		offset += segLens[i]

		sd := se.sd
		sd.Content = contentstream.Serialize(seg)
		if err := sd.Encode(); err != nil {
			p.log.Debug("array stream re-encode failed; leaving untouched", zap.Int("page", pageNum), zap.Error(err))
			newRefs = append(newRefs, contents[i])
			continue
		}
		sd.Dict["Length"] = types.Integer(len(sd.Raw))

		p.writeMu.Lock()
		entry, found := p.ctx.FindTableEntryForIndRef(&se.ref)
		if found {
			entry.Object = sd
		}
		p.writeMu.Unlock()

		newRefs = append(newRefs, se.ref)
	}

	bgRef, err := p.insertBackgroundStream(bg)
	if err != nil {
		p.log.Debug("could not insert background stream; page left without backdrop", zap.Int("page", pageNum), zap.Error(err))
		return
	}

	p.writeMu.Lock()
	pageDict["Contents"] = append(types.Array{*bgRef}, newRefs...)
	p.writeMu.Unlock()
}

// writeBackgroundOnlyPage handles a page with no /Contents entry: it gets a
// single new content stream holding just the background fill.
func (p *pipeline) writeBackgroundOnlyPage(pageDict types.Dict, bg []byte) {
	ref, err := p.insertBackgroundStream(bg)
	if err != nil {
		p.log.Debug("could not insert background-only stream", zap.Error(err))
		return
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	pageDict["Contents"] = *ref
}

func (p *pipeline) insertBackgroundStream(bg []byte) (*types.IndirectRef, error) {
	sd := types.StreamDict{
		Dict:    types.Dict{"Length": types.Integer(len(bg))},
		Content: bg,
	}
	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	sd.Dict["Length"] = types.Integer(len(sd.Raw))

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.ctx.InsertObject(sd)
}

// fallbackPage re-runs the no-rewrite path for a page that panicked during
// normal processing: it still gets the background fragment, but its
// content is left byte-for-byte as it was read.
func (p *pipeline) fallbackPage(pageNum int) {
	pageDict, _, inhAttrs, err := p.ctx.PageDict(pageNum, false)
	if err != nil {
		return
	}
	box := p.resolveMediaBox(pageDict, inhAttrs)
	bg := contentstream.Background(p.theme, box.x0, box.y0, box.w, box.h)

	contentsEntry, found := pageDict.Find("Contents")
	if !found {
		p.writeBackgroundOnlyPage(pageDict, bg)
		return
	}
	if ref, ok := contentsEntry.(types.IndirectRef); ok {
		obj, err := p.ctx.Dereference(ref)
		if err != nil {
			return
		}
		if sd, ok := obj.(types.StreamDict); ok {
			_ = sd.Decode()
			p.writeRawContent(ref, sd, bg, sd.Content)
		}
	}
	if arr, ok := contentsEntry.(types.Array); ok {
		bgRef, err := p.insertBackgroundStream(bg)
		if err != nil {
			return
		}
		p.writeMu.Lock()
		pageDict["Contents"] = append(types.Array{*bgRef}, arr...)
		p.writeMu.Unlock()
	}
}

type rect struct{ x0, y0, w, h float64 }

func (p *pipeline) resolveMediaBox(pageDict types.Dict, inhAttrs *model.InheritedPageAttrs) rect {
	if mb, found := pageDict.Find("MediaBox"); found {
		if arr, ok := mb.(types.Array); ok {
			if r := types.RectForArray(arr); r != nil {
				return rect{r.LL.X, r.LL.Y, r.Width(), r.Height()}
			}
		}
	}
	if inhAttrs != nil && inhAttrs.MediaBox != nil {
		r := inhAttrs.MediaBox
		return rect{r.LL.X, r.LL.Y, r.Width(), r.Height()}
	}
	// US Letter fallback when neither the page dict nor inherited
	// attributes carry a media box.
	return rect{0, 0, 612, 792}
}

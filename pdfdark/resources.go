package pdfdark

import (
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"

	"duskpdf/contentstream"
)

// formWalker rewrites every form XObject and tiling-pattern content stream
// reachable from the document's pages, each exactly once. Deduplication is
// by indirect-reference identity (object + generation number), which
// pdfcpu's types.IndirectRef already compares on.
type formWalker struct {
	ctx *model.Context
	th  *contentstream.Rewriter
	log *zap.Logger

	mu      sync.Mutex
	visited map[types.IndirectRef]bool
}

func newFormWalker(ctx *model.Context, rewriter *contentstream.Rewriter, log *zap.Logger) *formWalker {
	return &formWalker{
		ctx:     ctx,
		th:      rewriter,
		log:     log,
		visited: make(map[types.IndirectRef]bool),
	}
}

// Walk processes the /Resources dictionary of a single page (or, on
// recursion, of a form XObject nested inside it).
func (w *formWalker) Walk(resources types.Dict) {
	if resources == nil {
		return
	}
	w.walkXObjects(resources)
	w.walkPatterns(resources)
}

func (w *formWalker) walkXObjects(resources types.Dict) {
	entry, ok := resources.Find("XObject")
	if !ok {
		return
	}
	xobjDict, err := dictFromObject(w.ctx, entry)
	if err != nil {
		w.log.Debug("xobject dict unreadable", zap.Error(err))
		return
	}
	for _, v := range xobjDict {
		ref, ok := v.(types.IndirectRef)
		if !ok {
			continue
		}
		if !w.markVisited(ref) {
			continue
		}
		obj, err := w.ctx.Dereference(ref)
		if err != nil {
			w.log.Debug("form xobject dereference failed", zap.Error(err))
			continue
		}
		sd, ok := obj.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, _ := sd.Dict.Find("Subtype"); subtype != types.Name("Form") {
			continue
		}
		if err := rewriteStream(w.ctx, ref, sd, w.th); err != nil {
			w.log.Debug("form xobject rewrite failed; left unchanged", zap.Error(err))
		}
		if nested, ok := sd.Dict.Find("Resources"); ok {
			if nestedDict, err := dictFromObject(w.ctx, nested); err == nil {
				w.Walk(nestedDict)
			}
		}
	}
}

func (w *formWalker) walkPatterns(resources types.Dict) {
	entry, ok := resources.Find("Pattern")
	if !ok {
		return
	}
	patDict, err := dictFromObject(w.ctx, entry)
	if err != nil {
		w.log.Debug("pattern dict unreadable", zap.Error(err))
		return
	}
	for _, v := range patDict {
		ref, ok := v.(types.IndirectRef)
		if !ok {
			continue
		}
		if !w.markVisited(ref) {
			continue
		}
		obj, err := w.ctx.Dereference(ref)
		if err != nil {
			w.log.Debug("pattern dereference failed", zap.Error(err))
			continue
		}
		// Tiling patterns (PatternType 1) carry a content stream; shading
		// patterns (PatternType 2) are a plain dict with no operators to
		// rewrite and are skipped here.
		sd, ok := obj.(types.StreamDict)
		if !ok {
			continue
		}
		if err := rewriteStream(w.ctx, ref, sd, w.th); err != nil {
			w.log.Debug("pattern rewrite failed; left unchanged", zap.Error(err))
		}
		if nested, ok := sd.Dict.Find("Resources"); ok {
			if nestedDict, err := dictFromObject(w.ctx, nested); err == nil {
				w.Walk(nestedDict)
			}
		}
	}
}

func (w *formWalker) markVisited(ref types.IndirectRef) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.visited[ref] {
		return false
	}
	w.visited[ref] = true
	return true
}

// rewriteStream decodes sd's content, rewrites its color operators, and
// writes the re-encoded stream back under ref. It never alters sd's
// identity: only Content/Raw/Length change.
func rewriteStream(ctx *model.Context, ref types.IndirectRef, sd types.StreamDict, r *contentstream.Rewriter) error {
	if err := sd.Decode(); err != nil {
		return fmt.Errorf("%w: decode stream: %v", ErrParse, err)
	}
	toks, err := contentstream.Tokenize(sd.Content)
	if err != nil {
		return fmt.Errorf("%w: tokenize content stream: %v", ErrParse, err)
	}
	sd.Content = contentstream.Serialize(r.Rewrite(toks))
	if err := sd.Encode(); err != nil {
		return fmt.Errorf("%w: encode stream: %v", ErrSerialize, err)
	}
	sd.Dict["Length"] = types.Integer(len(sd.Raw))

	entry, found := ctx.FindTableEntryForIndRef(&ref)
	if !found {
		return fmt.Errorf("%w: missing xref entry for object", ErrSerialize)
	}
	entry.Object = sd
	return nil
}

// dictFromObject resolves obj to a types.Dict, dereferencing an indirect
// reference if necessary.
func dictFromObject(ctx *model.Context, obj types.Object) (types.Dict, error) {
	if ref, ok := obj.(types.IndirectRef); ok {
		resolved, err := ctx.Dereference(ref)
		if err != nil {
			return nil, err
		}
		obj = resolved
	}
	if sd, ok := obj.(types.StreamDict); ok {
		return sd.Dict, nil
	}
	d, ok := obj.(types.Dict)
	if !ok {
		return nil, fmt.Errorf("expected dict, got %T", obj)
	}
	return d, nil
}

// resolveColorSpace maps a named /Resources /ColorSpace entry back to a
// device space. Only literal device space names, CalGray/CalRGB/Lab arrays
// (by component count), and an ICCBased stream whose /N component count
// matches a device space are recognized; indexed, separation, and DeviceN
// spaces resolve to Unknown, leaving sc/scn against them untouched.
func resolveColorSpace(ctx *model.Context, resources types.Dict, name string) contentstream.DeviceSpace {
	if resources == nil {
		return contentstream.SpaceUnknown
	}
	csEntry, ok := resources.Find("ColorSpace")
	if !ok {
		return contentstream.SpaceUnknown
	}
	csDict, err := dictFromObject(ctx, csEntry)
	if err != nil {
		return contentstream.SpaceUnknown
	}
	obj, ok := csDict.Find(name)
	if !ok {
		return contentstream.SpaceUnknown
	}
	return deviceSpaceOf(ctx, obj)
}

func deviceSpaceOf(ctx *model.Context, obj types.Object) contentstream.DeviceSpace {
	if ref, ok := obj.(types.IndirectRef); ok {
		resolved, err := ctx.Dereference(ref)
		if err != nil {
			return contentstream.SpaceUnknown
		}
		obj = resolved
	}

	switch v := obj.(type) {
	case types.Name:
		return deviceSpaceByName(string(v))
	case types.Array:
		if len(v) == 0 {
			return contentstream.SpaceUnknown
		}
		head, _ := v[0].(types.Name)
		switch head {
		case "CalGray":
			return contentstream.SpaceGray
		case "CalRGB", "Lab":
			return contentstream.SpaceRGB
		case "ICCBased":
			if len(v) < 2 {
				return contentstream.SpaceUnknown
			}
			ref, ok := v[1].(types.IndirectRef)
			if !ok {
				return contentstream.SpaceUnknown
			}
			o, err := ctx.Dereference(ref)
			if err != nil {
				return contentstream.SpaceUnknown
			}
			sd, ok := o.(types.StreamDict)
			if !ok {
				return contentstream.SpaceUnknown
			}
			n, ok := sd.Dict.Find("N")
			if !ok {
				return contentstream.SpaceUnknown
			}
			ni, ok := n.(types.Integer)
			if !ok {
				return contentstream.SpaceUnknown
			}
			switch int(ni) {
			case 1:
				return contentstream.SpaceGray
			case 3:
				return contentstream.SpaceRGB
			case 4:
				return contentstream.SpaceCMYK
			}
		}
	}
	return contentstream.SpaceUnknown
}

func deviceSpaceByName(name string) contentstream.DeviceSpace {
	switch name {
	case "DeviceGray", "CalGray":
		return contentstream.SpaceGray
	case "DeviceRGB", "CalRGB":
		return contentstream.SpaceRGB
	case "DeviceCMYK":
		return contentstream.SpaceCMYK
	default:
		return contentstream.SpaceUnknown
	}
}

package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/osirislab/dispatch/internal/decode"
	"github.com/osirislab/dispatch/internal/logging"
	"github.com/osirislab/dispatch/internal/model"
)

// ErrUnmapped reports a discovered address that falls outside every mapped
// section. It is propagated, never swallowed: it means a flawed discovered
// address (for example a miscomputed literal-pool pointer) and must stay
// diagnosable.
var ErrUnmapped = errors.New("analysis: address not mapped")

type workItem struct {
	addr uint64
	mode decode.Mode
}

// Engine is the worklist-driven control-flow discovery engine. Discovery
// interleaves decoding with exploration: every branch target, loaded code
// pointer, and literal-pool entry seeds a new block with its own mode.
// State is mutated only during Run; the returned Result is frozen.
type Engine struct {
	exec model.Executable
	prof Profile
	log  *log.Logger

	// modes maps each discovered block start to the mode it decodes with.
	// First discoverer wins: later rediscoveries in another mode do not
	// overwrite.
	modes map[uint64]decode.Mode

	// knownEnds holds literal-pool addresses. A literal pool always sits
	// past the end of its block, so reaching one terminates decoding.
	knownEnds map[uint64]bool

	queue []workItem
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger replaces the default logger.
func WithLogger(lg *log.Logger) Option {
	return func(e *Engine) { e.log = lg }
}

// New creates an engine for one analysis run over exec.
func New(exec model.Executable, prof Profile, opts ...Option) *Engine {
	e := &Engine{
		exec:      exec,
		prof:      prof,
		log:       logging.New(),
		modes:     make(map[uint64]decode.Mode),
		knownEnds: make(map[uint64]bool),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Result is the frozen outcome of a discovery run.
type Result struct {
	// Instructions is the final address-to-instruction map. Gaps are
	// permitted where no valid instruction decoded.
	Instructions map[uint64]*model.Instruction

	// BlockModes records the mode each discovered block start decoded
	// with. No key has its low ISA-selector bit set.
	BlockModes map[uint64]decode.Mode

	// KnownEnds records discovered literal-pool addresses.
	KnownEnds map[uint64]bool
}

// Addrs returns the instruction addresses in ascending order.
func (r *Result) Addrs() []uint64 {
	out := make([]uint64, 0, len(r.Instructions))
	for a := range r.Instructions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Ordered returns the instructions in ascending address order.
func (r *Result) Ordered() []*model.Instruction {
	addrs := r.Addrs()
	out := make([]*model.Instruction, len(addrs))
	for i, a := range addrs {
		out[i] = r.Instructions[a]
	}
	return out
}

// Run drives discovery to worklist exhaustion, then decodes one final pass
// over the fully resolved boundary list.
func (e *Engine) Run() (*Result, error) {
	entry := e.exec.EntryPoint()
	mode := e.prof.InitialMode(entry)
	start := entry &^ 1

	e.modes[start] = mode
	e.queue = append(e.queue, workItem{start, mode})
	e.log.Debug("seeded entry point", "addr", hexAddr(start), "mode", mode)

	for len(e.queue) > 0 {
		it := e.queue[0]
		e.queue = e.queue[1:]
		if err := e.explore(it.addr, it.mode); err != nil {
			return nil, err
		}
	}

	ins, err := e.finalize()
	if err != nil {
		return nil, err
	}
	return &Result{Instructions: ins, BlockModes: e.modes, KnownEnds: e.knownEnds}, nil
}

// spanEnd computes the decode bound for a block starting at start: the
// smallest already-discovered block start strictly greater, or the end of
// the containing section when none exists. Recomputed from current state on
// every pop, so later discoveries only shrink future spans.
func (e *Engine) spanEnd(start uint64) (uint64, error) {
	var end uint64
	found := false
	for a := range e.modes {
		if a > start && (!found || a < end) {
			end = a
			found = true
		}
	}
	if found {
		return end, nil
	}
	sec, ok := e.exec.SectionContaining(start)
	if !ok {
		return 0, fmt.Errorf("%w: no section contains 0x%x", ErrUnmapped, start)
	}
	return sec.Vaddr + sec.Size, nil
}

// explore decodes one span and performs classification-driven discovery on
// every instruction in it.
func (e *Engine) explore(start uint64, mode decode.Mode) error {
	end, err := e.spanEnd(start)
	if err != nil {
		return err
	}

	// Force the ISA-selector bit off before reading bytes.
	start &^= 1

	code, err := e.exec.VaddrRange(start, end)
	if err != nil {
		return fmt.Errorf("analysis: read span 0x%x-0x%x: %w", start, end, err)
	}

	e.log.Debug("analyzing code", "addr", hexAddr(start), "mode", mode)
	trace := logging.IsDebug()

	off := uint64(0)
	for off < uint64(len(code)) {
		addr := start + off
		if e.knownEnds[addr] {
			// Reached a constants table: end of this block.
			break
		}
		ins, derr := e.prof.Decoder.Decode(code[off:], addr, mode)
		if derr != nil {
			// Data byte: we ran off the end of the block.
			break
		}
		if trace {
			e.log.Debug("decoded", "addr", hexAddr(addr), "op", ins.Mnemonic)
		}
		if err := e.inspect(ins, mode); err != nil {
			return err
		}
		off += uint64(ins.Size)
	}
	return nil
}

// inspect applies the discovery rules to one decoded instruction.
func (e *Engine) inspect(ins *model.Instruction, mode decode.Mode) error {
	switch {
	// Branch with an immediate target.
	case (ins.IsJump() || ins.IsCall()) && lastIsImm(ins):
		target, _ := ins.Target()
		if !e.exec.VaddrIsExecutable(target) {
			return nil
		}
		next := mode
		if e.prof.IsExchange(ins.Mnemonic) {
			next = e.prof.ExchangeMode(mode)
		}
		e.discover(target, next, "branch", ins.Addr)

	case strings.HasPrefix(ins.Mnemonic, "ld") || strings.HasPrefix(ins.Mnemonic, "mov"):
		n := len(ins.Operands)
		if n == 0 {
			return nil
		}
		last := ins.Operands[n-1]

		switch {
		// Load/move of an immediate that is itself a code address, as
		// when a function pointer is materialized into a register.
		case last.Kind == model.KindImm:
			ref := uint64(last.Imm)
			if e.exec.VaddrIsExecutable(ref) {
				e.discover(ref, e.prof.ModeForAddr(ref), "reference", ins.Addr)
			}

		// PC-relative load: a literal-pool access.
		case last.Kind == model.KindMem && model.IsIPReg(e.prof.Arch, last.Base):
			return e.inspectLiteral(ins, last)
		}
	}
	return nil
}

// inspectLiteral resolves a literal-pool access: the pool entry's address
// terminates the enclosing block, and the pointer stored there may seed a
// new one.
func (e *Engine) inspectLiteral(ins *model.Instruction, op model.Operand) error {
	// PC reads PipelineOffset bytes ahead and the literal is word-aligned.
	ptr := uint64(int64(ins.Addr)+int64(e.prof.PipelineOffset)+op.Disp) &^ 3

	e.knownEnds[ptr] = true

	width := e.exec.AddrLen()
	raw, err := e.exec.VaddrRange(ptr, ptr+uint64(width))
	if err != nil {
		return fmt.Errorf("analysis: literal pool at 0x%x (from 0x%x): %w", ptr, ins.Addr, err)
	}

	var ref uint64
	if width == 8 {
		ref = e.exec.ByteOrder().Uint64(raw)
	} else {
		ref = uint64(e.exec.ByteOrder().Uint32(raw))
	}

	if e.exec.VaddrIsExecutable(ref) {
		e.log.Debug("literal pool entry", "pool", hexAddr(ptr), "value", hexAddr(ref), "from", hexAddr(ins.Addr))
		e.discover(ref, e.prof.ModeForAddr(ref), "literal", ins.Addr)
	}
	return nil
}

// discover records a block start in the derived mode and enqueues it. The
// ISA-selector bit is masked off before storage, and an already-discovered
// start keeps its first mode.
func (e *Engine) discover(addr uint64, mode decode.Mode, why string, from uint64) {
	addr &^= 1
	if _, seen := e.modes[addr]; seen {
		return
	}
	e.modes[addr] = mode
	e.queue = append(e.queue, workItem{addr, mode})
	e.log.Debug("discovered block", "addr", hexAddr(addr), "mode", mode, "via", why, "from", hexAddr(from))
}

// finalize decodes the byte range of every discovered block, in its
// recorded mode, into the final instruction map. It is a pure function of
// the discovery maps: visitation order during discovery cannot change it.
func (e *Engine) finalize() (map[uint64]*model.Instruction, error) {
	starts := make([]uint64, 0, len(e.modes))
	for a := range e.modes {
		starts = append(starts, a)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	out := make(map[uint64]*model.Instruction)
	for i, bb := range starts {
		var end uint64
		if i+1 < len(starts) {
			end = starts[i+1]
		} else {
			// The last block extends to its section's natural end.
			sec, ok := e.exec.SectionContaining(bb)
			if !ok {
				return nil, fmt.Errorf("%w: no section contains 0x%x", ErrUnmapped, bb)
			}
			end = sec.Vaddr + sec.Size
		}

		code, err := e.exec.VaddrRange(bb, end)
		if err != nil {
			return nil, fmt.Errorf("analysis: read block 0x%x-0x%x: %w", bb, end, err)
		}

		mode := e.modes[bb]
		off := uint64(0)
		for off < uint64(len(code)) {
			addr := bb + off
			if e.knownEnds[addr] {
				break
			}
			ins, derr := e.prof.Decoder.Decode(code[off:], addr, mode)
			if derr != nil {
				break
			}
			out[addr] = ins
			off += uint64(ins.Size)
		}
	}
	return out, nil
}

func lastIsImm(ins *model.Instruction) bool {
	n := len(ins.Operands)
	return n > 0 && ins.Operands[n-1].Kind == model.KindImm
}

func hexAddr(a uint64) string { return fmt.Sprintf("0x%x", a) }

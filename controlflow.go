package qflow

import "github.com/qflow-sim/qflow/qerr"

// Inv runs body with every primitive call it makes deferred onto a fresh
// queue, then replays that queue in reverse, inverted, so the net effect
// on the branch store is the inverse of whatever body would otherwise have
// done (spec.md §4.12 "inv"). Measurement primitives are forbidden inside
// body via the mode stack.
func (s *Simulator) Inv(body func() error) error {
	s.pushQueue()
	s.pushMode("inv")
	bodyErr := body()
	s.popMode()
	queue := s.popQueue()
	if bodyErr != nil {
		return bodyErr
	}
	for i := len(queue) - 1; i >= 0; i-- {
		inv, err := invertAction(queue[i])
		if err != nil {
			return err
		}
		if s.queueAction(inv.op, inv.args) {
			continue
		}
		if err := s.call(queue[i], true); err != nil {
			return err
		}
	}
	return nil
}

// --- q_while ---------------------------------------------------------

type doWhileArgs struct {
	Queue []action
	Expr  Expr
	Key   *Key
}

func (s *Simulator) doWhile(queue []action, expr Expr, key *Key) error {
	args := doWhileArgs{Queue: queue, Expr: expr, Key: key}
	if s.queueAction(opDoWhile, args) {
		return nil
	}
	return s.dispatch(opDoWhile, args)
}

func (s *Simulator) doWhileInv(queue []action, expr Expr, key *Key) error {
	args := doWhileArgs{Queue: queue, Expr: expr, Key: key}
	if s.queueAction(opDoWhileInv, args) {
		return nil
	}
	return s.dispatch(opDoWhileInv, args)
}

// QWhile implements the quantum while loop (spec.md §4.11): body runs
// repeatedly, once per "round", each round's replay confined to the
// branches where round count < the number of times expr has been nonzero
// so far, until expr is zero on every active branch. key must start at 0
// on every active branch and must not appear in expr.
func (s *Simulator) QWhile(expr Expr, key *Key, body func() error) error {
	s.pushQueue()
	s.pushMode("q_while")
	bodyErr := body()
	s.popMode()
	queue := s.popQueue()
	if bodyErr != nil {
		return bodyErr
	}
	return s.doWhile(queue, expr, key)
}

func execDoWhile(s *Simulator, a any) error {
	args := a.(doWhileArgs)
	if args.Expr.Keys().Contains(args.Key) {
		return qerr.Structuralf("q_while: loop expression cannot depend on the loop counter")
	}
	id, err := args.Key.Index()
	if err != nil {
		return err
	}
	active, err := s.activeBranches()
	if err != nil {
		return err
	}
	for _, b := range active {
		v, ok := b.Get(id)
		if ok && !v.IsZero() {
			return qerr.Semanticf("q_while: loop counter %d must start at 0", args.Key.ID())
		}
	}

	plusOne, minusOne := PlusEq(Const(1))

	var count int64
	for {
		active, err := s.activeBranches()
		if err != nil {
			return err
		}
		anyNonzero := false
		for _, b := range active {
			v, err := args.Expr.Eval(b)
			if err != nil {
				return err
			}
			if !v.IsZero() {
				anyNonzero = true
				break
			}
		}
		if !anyNonzero {
			return nil
		}

		if s.cfg.MaxWhileIterations > 0 && count >= int64(s.cfg.MaxWhileIterations) {
			return qerr.Semanticf("q_while: exceeded debug iteration cap of %d rounds", s.cfg.MaxWhileIterations)
		}

		if err := s.QIf(args.Expr, func() error {
			return s.Oper(args.Key, Const(1), plusOne, minusOne)
		}); err != nil {
			return err
		}

		round := Gt(Reg(args.Key), Const(count))
		if err := s.QIf(round, func() error {
			for _, a := range args.Queue {
				if err := s.call(a, false); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}

		count++
	}
}

// execDoWhileInv is its own algorithm, not do_while run on a transformed
// queue: it counts key down from its current maximum, one round per unit,
// undoing the round's body (reversed and inverted) while key is still
// above that round's count, then decrementing key itself wherever expr
// still holds — the exact mirror of do_while's increment-then-run-body
// loop, run back to front.
func execDoWhileInv(s *Simulator, a any) error {
	args := a.(doWhileArgs)
	if err := s.assertMutable(args.Key); err != nil {
		return err
	}
	if args.Expr.Keys().Contains(args.Key) {
		return qerr.Structuralf("q_while: loop expression cannot depend on the loop counter")
	}
	id, err := args.Key.Index()
	if err != nil {
		return err
	}
	active, err := s.activeBranches()
	if err != nil {
		return err
	}
	var count int64
	for _, b := range active {
		v, ok := b.Get(id)
		if ok && v.Int64() > count {
			count = v.Int64()
		}
	}

	minusOne, plusOne := MinusEq(Const(1))

	for count != 0 {
		count--

		gate := Gt(Reg(args.Key), Const(count))
		if err := s.QIf(gate, func() error {
			for i := len(args.Queue) - 1; i >= 0; i-- {
				if err := s.call(args.Queue[i], true); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}

		if err := s.QIf(args.Expr, func() error {
			return s.Oper(args.Key, Const(1), minusOne, plusOne)
		}); err != nil {
			return err
		}
	}
	return nil
}

// --- garbage -----------------------------------------------------------

type doGarbageArgs struct {
	Queue []action
	Pile  *[]*Key
	Name  string
}

func (s *Simulator) doGarbage(queue []action, pile *[]*Key, name string) error {
	args := doGarbageArgs{Queue: queue, Pile: pile, Name: name}
	if s.queueAction(opDoGarbage, args) {
		return nil
	}
	return s.dispatch(opDoGarbage, args)
}

func execDoGarbage(s *Simulator, a any) error {
	args := a.(doGarbageArgs)
	s.pileStack = append(s.pileStack, args.Pile)
	for _, act := range args.Queue {
		if err := s.call(act, false); err != nil {
			s.pileStack = s.pileStack[:len(s.pileStack)-1]
			return err
		}
	}
	s.pileStack = s.pileStack[:len(s.pileStack)-1]
	if args.Name == "keyless" && len(*args.Pile) > 0 {
		return qerr.Semanticf("keyless garbage scope ended with %d register(s) still allocated", len(*args.Pile))
	}
	return nil
}

func execDoGarbageInv(s *Simulator, a any) error {
	args := a.(doGarbageArgs)
	reversed := make([]action, 0, len(args.Queue))
	for i := len(args.Queue) - 1; i >= 0; i-- {
		inv, err := invertAction(args.Queue[i])
		if err != nil {
			return err
		}
		reversed = append(reversed, inv)
	}
	return s.doGarbage(reversed, args.Pile, args.Name)
}

// Garbage opens a keyless (scope-local) garbage pile: every register
// allocated by Reg inside body is tracked, and the scope errors unless
// every one of them has been cleaned again by the time body returns
// (spec.md §4.13 "garbage").
func (s *Simulator) Garbage(body func() error) error {
	return s.garbageScope("keyless", true, body)
}

// GarbageNamed opens (or reopens) a persistent, named garbage pile: unlike
// the keyless form, registers left allocated at scope exit are not an
// error by themselves, but AssertPileClean(name) will fail until they are
// cleaned (spec.md §4.13 "garbage" named form).
func (s *Simulator) GarbageNamed(name string, body func() error) error {
	if name == "" || name == "keyless" {
		return qerr.Structuralf("%q is a reserved garbage pile name", "keyless")
	}
	return s.garbageScope(name, false, body)
}

func (s *Simulator) garbageScope(name string, keyless bool, body func() error) error {
	s.garbageStack = append(s.garbageStack, name)
	var pile *[]*Key
	if keyless {
		p := make([]*Key, 0)
		pile = &p
		s.keylessPiles = append(s.keylessPiles, pile)
	} else {
		if s.namedPiles[name] == nil {
			p := make([]*Key, 0)
			s.namedPiles[name] = &p
		}
		pile = s.namedPiles[name]
	}
	s.pushQueue()
	s.pushMode("garbage")

	bodyErr := body()

	s.popMode()
	queue := s.popQueue()
	if keyless {
		s.keylessPiles = s.keylessPiles[:len(s.keylessPiles)-1]
	}
	s.garbageStack = s.garbageStack[:len(s.garbageStack)-1]

	if bodyErr != nil {
		return bodyErr
	}
	return s.doGarbage(queue, pile, name)
}

type assertPileCleanArgs struct {
	Name string
}

// AssertPileClean errors unless the named garbage pile currently has no
// registers allocated (spec.md §4.13 "assert_pile_clean"). Self-inverse.
func (s *Simulator) AssertPileClean(name string) error {
	args := assertPileCleanArgs{Name: name}
	if s.queueAction(opAssertPileClean, args) {
		return nil
	}
	return s.dispatch(opAssertPileClean, args)
}

func execAssertPileClean(s *Simulator, a any) error {
	args := a.(assertPileCleanArgs)
	pile, ok := s.namedPiles[args.Name]
	if !ok || len(*pile) == 0 {
		return nil
	}
	return qerr.Semanticf("garbage pile %q is not clean: %d register(s) still allocated", args.Name, len(*pile))
}

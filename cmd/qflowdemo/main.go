// Command qflowdemo runs one of a handful of canonical simulator
// scenarios and prints its resulting distribution, exercising the
// qflow engine end to end from the command line.
package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/qflow-sim/qflow"
	"github.com/qflow-sim/qflow/qconfig"
	"github.com/qflow-sim/qflow/qlog"
)

var (
	configPath string
	scenario   string
	seed       int64
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		qlog.Errorw("qflowdemo failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qflowdemo",
		Short: "Run a canonical embedded quantum-DSL scenario and print its distribution",
		RunE:  run,
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML config file overriding the default thresholds")
	cmd.Flags().StringVar(&scenario, "scenario", "bell", "scenario to run: bell, had-cancel, qft-uniform, q-while, garbage")
	cmd.Flags().Int64Var(&seed, "seed", 1, "seed for the simulator's random source, for reproducible measurement draws")
	return cmd
}

func loadConfig() (qconfig.Config, error) {
	if configPath == "" {
		return qconfig.Default(), nil
	}
	return qconfig.Load(configPath)
}

func run(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sim := qflow.New(cfg)
	sim.SetRand(rand.New(rand.NewSource(seed)))

	switch scenario {
	case "bell":
		return runBell(sim)
	case "had-cancel":
		return runHadCancel(sim)
	case "qft-uniform":
		return runQFTUniform(sim)
	case "q-while":
		return runQWhile(sim)
	case "garbage":
		return runGarbage(sim)
	default:
		return fmt.Errorf("qflowdemo: unknown scenario %q", scenario)
	}
}

// runBell entangles two freshly allocated registers into a Bell pair:
// Had splits the first register's low bit, then a q_if scope conditioned
// on that register flips the second register to match it.
func runBell(sim *qflow.Simulator) error {
	a, err := sim.Reg(qflow.IntVal(0))
	if err != nil {
		return err
	}
	b, err := sim.Reg(qflow.IntVal(0))
	if err != nil {
		return err
	}
	if err := sim.Had(a, qflow.Const(0)); err != nil {
		return err
	}
	plusOne, minusOne := qflow.PlusEq(qflow.Const(1))
	if err := sim.QIf(qflow.Eq(qflow.Reg(a), qflow.Const(1)), func() error {
		return sim.Oper(b, qflow.Const(1), plusOne, minusOne)
	}); err != nil {
		return err
	}
	return sim.Print([]qflow.Expr{qflow.Label{Text: "a"}, qflow.Reg(a), qflow.Label{Text: "b"}, qflow.Reg(b)})
}

// runHadCancel applies Had to the same bit twice; the two rotations
// interfere and the merged branches collapse back to the original state.
func runHadCancel(sim *qflow.Simulator) error {
	a, err := sim.Reg(qflow.IntVal(0))
	if err != nil {
		return err
	}
	if err := sim.Had(a, qflow.Const(0)); err != nil {
		return err
	}
	if err := sim.Had(a, qflow.Const(0)); err != nil {
		return err
	}
	return sim.Print([]qflow.Expr{qflow.Reg(a)})
}

// runQFTUniform puts a register into a uniform superposition over [0,4)
// and applies a QFT modulo 4, demonstrating the phase kickback.
func runQFTUniform(sim *qflow.Simulator) error {
	a, err := sim.Reg(qflow.UniformVal(qflow.Range(4)))
	if err != nil {
		return err
	}
	if err := sim.QFT(a, qflow.Const(4), false); err != nil {
		return err
	}
	return sim.PrintAmp([]qflow.Expr{qflow.Reg(a)})
}

// runQWhile drives a quantum while loop: a coin-flip register f starts
// uniform over {0,1}; the loop body turns f off and increments counter c
// once per active branch where f is still nonzero, terminating after at
// most one round since f has only two possible values.
func runQWhile(sim *qflow.Simulator) error {
	f, err := sim.Reg(qflow.UniformVal([]int64{0, 1}))
	if err != nil {
		return err
	}
	c, err := sim.Reg(qflow.IntVal(0))
	if err != nil {
		return err
	}
	flipOff, flipOn := qflow.PlusEq(qflow.Const(-1))
	if err := sim.QWhile(qflow.Reg(f), c, func() error {
		return sim.Oper(f, qflow.Const(1), flipOff, flipOn)
	}); err != nil {
		return err
	}
	return sim.Print([]qflow.Expr{qflow.Label{Text: "f"}, qflow.Reg(f), qflow.Label{Text: "c"}, qflow.Reg(c)})
}

// runGarbage allocates a scratch register inside a keyless garbage scope,
// uses it, and cleans it before the scope closes, the uncompute pattern
// most user programs rely on to keep ancillas from leaking into the
// final distribution.
func runGarbage(sim *qflow.Simulator) error {
	a, err := sim.Reg(qflow.IntVal(3))
	if err != nil {
		return err
	}
	if err := sim.Garbage(func() error {
		scratchVal := qflow.IntVal(0)
		scratch, err := sim.Reg(scratchVal)
		if err != nil {
			return err
		}
		plus, minus := qflow.PlusEq(qflow.Reg(a))
		if err := sim.Oper(scratch, qflow.Reg(a), plus, minus); err != nil {
			return err
		}
		if err := sim.OperInv(scratch, qflow.Reg(a), plus, minus); err != nil {
			return err
		}
		return sim.Clean(scratch, scratchVal)
	}); err != nil {
		return err
	}
	return sim.Print([]qflow.Expr{qflow.Reg(a)})
}

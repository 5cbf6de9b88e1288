// Command oraclestep drives a built-in fixture module through the
// engine one StepThread call at a time against oracle/mockoracle,
// printing the thread's exit value (and, with -v, the mock Oracle's
// hook call log). It exists to exercise the dispatcher
// from the command line the way core/vm's CLI tooling exercises the
// EVM, without needing the (out of scope) textual IR loader: each
// fixture is a small Go-constructed module covering one of spec.md
// §8's seed scenarios.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/icmccorm/llvm-project/engine"
	"github.com/icmccorm/llvm-project/ir"
	"github.com/icmccorm/llvm-project/oracle/mockoracle"
	"github.com/icmccorm/llvm-project/value"
)

func main() {
	app := &cli.App{
		Name:  "oraclestep",
		Usage: "step a fixture module through the engine against a mock Oracle",
		Commands: []*cli.Command{
			listCommand(),
			runCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "oraclestep:", err)
		os.Exit(1)
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list available fixture scenarios",
		Action: func(c *cli.Context) error {
			names := make([]string, 0, len(scenarios))
			for name := range scenarios {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "step a scenario to completion",
		ArgsUsage: "<scenario>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "print every hook call"},
		},
		Action: func(c *cli.Context) error {
			name := c.Args().First()
			build, ok := scenarios[name]
			if !ok {
				return fmt.Errorf("unknown scenario %q (try %q)", name, "oraclestep list")
			}
			return runScenario(name, build(), c.Bool("verbose"))
		},
	}
}

func runScenario(name string, mod *ir.Module, verbose bool) error {
	e := engine.CreateForModule(mod, engine.Config{})
	mock := mockoracle.New()
	e.SetHooks(mock.Hooks())
	if err := e.SetInterpCxWrapper(mock); err != nil {
		return fmt.Errorf("installing oracle: %w", err)
	}

	mainFn, ok := mod.Functions["main"]
	if !ok {
		return fmt.Errorf("scenario %q has no main function", name)
	}

	const tid = 1
	if err := e.CreateThread(tid, mainFn, nil); err != nil {
		return err
	}

	fmt.Printf("scenario %s: stepping %q\n", name, mainFn.Name)
	var pendingRet *value.Value
	for {
		done, err := e.StepThread(tid, pendingRet)
		pendingRet = nil
		if err != nil {
			return fmt.Errorf("step failed: %w", err)
		}
		if done {
			break
		}
		if _, calleeName, suspended := e.PendingCall(tid); suspended {
			ret := resolveForeignCall(calleeName)
			pendingRet = &ret
		}
	}

	if ev := e.GetThreadExitValue(tid); ev != nil {
		fmt.Printf("exit value: %s\n", formatValue(*ev))
	} else {
		fmt.Println("exit value: <void>")
	}

	if verbose {
		fmt.Println("oracle calls:")
		for _, call := range mock.Calls {
			fmt.Println(" ", call)
		}
	}
	return nil
}

// resolveForeignCall stands in for the real out-of-process foreign
// call a host would perform between suspension and the next
// StepThread: this demo always answers 2x the callee's fixed operand,
// enough to exercise scenarioForeignCall's `call i32 @f(i32 5)`.
func resolveForeignCall(calleeName string) value.Value {
	_ = calleeName
	return value.IntValue(i32Ty, value.NewIntFromUint64(32, 10))
}

func formatValue(v value.Value) string {
	switch v.Kind {
	case value.KindInt:
		return fmt.Sprintf("i%d %s", v.I.Width(), v.I.Unsigned().String())
	case value.KindF32:
		return fmt.Sprintf("f32 %g", v.F32)
	case value.KindF64:
		return fmt.Sprintf("f64 %g", v.F64)
	case value.KindPointer:
		return fmt.Sprintf("ptr alloc=%d addr=0x%x", v.Ptr.Prov.AllocID, v.Ptr.Addr)
	default:
		return fmt.Sprintf("<%v>", v.Kind)
	}
}

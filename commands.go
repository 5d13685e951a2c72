package main

import (
	"math"
	"strconv"

	model "txbench/Model"
	"txbench/errors"
	"txbench/events"
	"txbench/subscriber"
	"txbench/workbench"

	"github.com/spf13/cobra"
)

// ===============================
// tx
// ===============================
func (a *app) txCmd() *cobra.Command {
	txCmd := &cobra.Command{
		Use:   "tx",
		Short: "Manage staged transactions",
	}

	var req workbench.AddRequest
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Assemble and stage a transaction from named cells",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			staged, err := a.bench.Add(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(staged.View())
		},
	}
	addCmd.Flags().StringSliceVar(&req.Deps, "deps", nil, "Dependency out-points, <hash>-<index>")
	addCmd.Flags().StringSliceVar(&req.Inputs, "inputs", nil, "Input names")
	addCmd.Flags().StringSliceVar(&req.Outputs, "outputs", nil, "Output cell names")
	addCmd.Flags().BoolVar(&req.SignWithKeys, "set-witnesses-by-keys", false, "Sign with stored keys after staging")

	setWitnessCmd := &cobra.Command{
		Use:   "set-witness <tx-hash> <input-index> [hex-item...]",
		Short: "Replace the witness of one input",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := model.ParseHash(args[0])
			if err != nil {
				return err
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Wrap(errors.InvalidIndex, err, "invalid input index %q", args[1])
			}
			data, err := parseHexList(args[2:])
			if err != nil {
				return err
			}
			staged, err := a.bench.SetWitness(hash, index, data)
			if err != nil {
				return err
			}
			return printJSON(staged.View())
		},
	}

	signCmd := &cobra.Command{
		Use:   "set-witnesses-by-keys <tx-hash>",
		Short: "Sign every input a stored key can unlock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := model.ParseHash(args[0])
			if err != nil {
				return err
			}
			staged, _, err := a.bench.SetWitnessesByKeys(cmd.Context(), hash)
			if err != nil {
				return err
			}
			return printJSON(staged.View())
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <tx-hash>",
		Short: "Print a staged transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := model.ParseHash(args[0])
			if err != nil {
				return err
			}
			staged, err := a.bench.Get(hash)
			if err != nil {
				return err
			}
			return printJSON(staged.View())
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <tx-hash>",
		Short: "Delete a staged transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := model.ParseHash(args[0])
			if err != nil {
				return err
			}
			staged, err := a.bench.Remove(cmd.Context(), hash)
			if err != nil {
				return err
			}
			return printJSON(staged.View())
		},
	}

	var maxCycles uint64
	verifyCmd := &cobra.Command{
		Use:   "verify <tx-hash>",
		Short: "Dry-run a staged transaction on the remote node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := model.ParseHash(args[0])
			if err != nil {
				return err
			}
			res, err := a.bench.Verify(cmd.Context(), hash, maxCycles)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	verifyCmd.Flags().Uint64Var(&maxCycles, "max-cycles", math.MaxUint64, "Execution cycle budget")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List staged transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			staged, err := a.bench.List()
			if err != nil {
				return err
			}
			views := make([]model.StagedTxView, 0, len(staged))
			for _, s := range staged {
				views = append(views, s.View())
			}
			return printJSON(views)
		},
	}

	txCmd.AddCommand(addCmd, setWitnessCmd, signCmd, showCmd, removeCmd, verifyCmd, listCmd)
	return txCmd
}

// ===============================
// cell / input
// ===============================
type namedCellView struct {
	Name        string               `json:"name"`
	CapacityCKB string               `json:"capacity_ckb"`
	Cell        model.CellOutputView `json:"cell"`
}

func cellView(name string, cell model.CellOutput) namedCellView {
	return namedCellView{Name: name, CapacityCKB: model.FormatCapacity(cell.Capacity), Cell: cell.View()}
}

func (a *app) cellCmd() *cobra.Command {
	cellCmd := &cobra.Command{
		Use:   "cell",
		Short: "Manage named output cells",
	}

	var (
		capacity     string
		data         string
		lockCodeHash string
		lockArgs     []string
		typeCodeHash string
		typeArgs     []string
	)
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Store a named output cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cell model.CellOutput
			var err error

			if cell.Capacity, err = model.ParseCapacity(capacity); err != nil {
				return err
			}
			if data != "" {
				if cell.Data, err = model.ParseHexBytes(data); err != nil {
					return err
				}
			}
			if cell.Lock, err = parseScript(lockCodeHash, lockArgs); err != nil {
				return err
			}
			if typeCodeHash != "" {
				typeScript, err := parseScript(typeCodeHash, typeArgs)
				if err != nil {
					return err
				}
				cell.Type = &typeScript
			}

			if err := a.bench.AddCell(args[0], cell); err != nil {
				return err
			}
			return printJSON(cellView(args[0], cell))
		},
	}
	addCmd.Flags().StringVar(&capacity, "capacity", "0", "Capacity in CKB, up to 8 decimals")
	addCmd.Flags().StringVar(&data, "data", "", "Cell data, hex")
	addCmd.Flags().StringVar(&lockCodeHash, "lock-code-hash", "", "Lock script code hash")
	addCmd.Flags().StringSliceVar(&lockArgs, "lock-args", nil, "Lock script args, hex")
	addCmd.Flags().StringVar(&typeCodeHash, "type-code-hash", "", "Type script code hash")
	addCmd.Flags().StringSliceVar(&typeArgs, "type-args", nil, "Type script args, hex")
	_ = addCmd.MarkFlagRequired("lock-code-hash")

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a named output cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cell, err := a.bench.GetCell(args[0])
			if err != nil {
				return err
			}
			return printJSON(cellView(args[0], cell))
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List named output cells",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cells, err := a.bench.ListCells()
			if err != nil {
				return err
			}
			views := make([]namedCellView, 0, len(cells))
			for _, c := range cells {
				views = append(views, cellView(c.Name, c.Cell))
			}
			return printJSON(views)
		},
	}

	cellCmd.AddCommand(addCmd, showCmd, listCmd)
	return cellCmd
}

type namedInputView struct {
	Name  string              `json:"name"`
	Input model.CellInputView `json:"input"`
}

func (a *app) inputCmd() *cobra.Command {
	inputCmd := &cobra.Command{
		Use:   "input",
		Short: "Manage named inputs",
	}

	var (
		since     uint64
		inputArgs []string
	)
	addCmd := &cobra.Command{
		Use:   "add <name> <previous-output>",
		Short: "Store a named input spending <hash>-<index>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := model.ParseOutPoint(args[1])
			if err != nil {
				return err
			}
			parsedArgs, err := parseHexList(inputArgs)
			if err != nil {
				return err
			}
			in := model.CellInput{PreviousOutput: op, Since: since, Args: parsedArgs}
			if err := a.bench.AddInput(args[0], in); err != nil {
				return err
			}
			return printJSON(namedInputView{Name: args[0], Input: in.View()})
		},
	}
	addCmd.Flags().Uint64Var(&since, "since", 0, "Since value")
	addCmd.Flags().StringSliceVar(&inputArgs, "args", nil, "Input args, hex")

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a named input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.bench.GetInput(args[0])
			if err != nil {
				return err
			}
			return printJSON(namedInputView{Name: args[0], Input: in.View()})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List named inputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := a.bench.ListInputs()
			if err != nil {
				return err
			}
			views := make([]namedInputView, 0, len(inputs))
			for _, in := range inputs {
				views = append(views, namedInputView{Name: in.Name, Input: in.Input.View()})
			}
			return printJSON(views)
		},
	}

	inputCmd.AddCommand(addCmd, showCmd, listCmd)
	return inputCmd
}

// ===============================
// key
// ===============================
func (a *app) keyCmd() *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage signing keys",
	}

	generateCmd := &cobra.Command{
		Use:   "generate <name>",
		Short: "Create and store a random ed25519 key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := a.bench.GenerateKey(args[0])
			if err != nil {
				return err
			}
			return printJSON(k.View())
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <name> <seed-hex>",
		Short: "Store a key from its 32-byte seed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := a.bench.ImportKey(args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(k.View())
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := a.bench.ListKeys()
			if err != nil {
				return err
			}
			views := make([]model.KeyView, 0, len(keys))
			for _, k := range keys {
				views = append(views, k.View())
			}
			return printJSON(views)
		},
	}

	keyCmd.AddCommand(generateCmd, importCmd, listCmd)
	return keyCmd
}

// ===============================
// events / showconf
// ===============================
func (a *app) eventsCmd() *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Workbench event topics",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the event topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.events == nil {
				return errors.New(errors.InvalidArgument, "pubsub.project_id is not configured")
			}
			return a.events.EnsureTopics(cmd.Context())
		},
	}

	var (
		subName string
		event   string
	)
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print events as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.events == nil {
				return errors.New(errors.InvalidArgument, "pubsub.project_id is not configured")
			}
			sub, err := a.events.Subscription(cmd.Context(), subName, event)
			if err != nil {
				return err
			}
			a.logger.Info().Str("subscription", subName).Str("event", event).Msg("watching")
			return subscriber.Watch(cmd.Context(), sub, a.logger, func(ev subscriber.Event) {
				_ = printJSON(ev)
			})
		},
	}
	watchCmd.Flags().StringVar(&subName, "subscription", "txbench-watch", "Subscription name, created if missing")
	watchCmd.Flags().StringVar(&event, "event", events.TopicTxStaged, "Event topic to follow")

	eventsCmd.AddCommand(initCmd, watchCmd)
	return eventsCmd
}

func (a *app) showConfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "showconf",
		Short: "Print the config state and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cfg.RPC.Pass != "" {
				cfg.RPC.Pass = "********"
			}
			return printJSON(cfg)
		},
	}
}

func parseScript(codeHash string, args []string) (model.Script, error) {
	hash, err := model.ParseHash(codeHash)
	if err != nil {
		return model.Script{}, err
	}
	parsed, err := parseHexList(args)
	if err != nil {
		return model.Script{}, err
	}
	return model.Script{CodeHash: hash, Args: parsed}, nil
}

func parseHexList(items []string) ([][]byte, error) {
	out := make([][]byte, 0, len(items))
	for _, item := range items {
		b, err := model.ParseHexBytes(item)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

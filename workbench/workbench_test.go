package workbench

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"testing"
	"time"

	model "txbench/Model"
	"txbench/errors"
	"txbench/events"
	"txbench/rpc"

	"github.com/jarcoal/httpmock"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	cells      map[model.OutPoint]model.CellOutput
	cycles     uint64
	dryRunErr  error
	resolveErr error
	dryRuns    int
}

func (r *fakeRemote) DryRun(context.Context, *model.Transaction) (uint64, error) {
	r.dryRuns++
	if r.dryRunErr != nil {
		return 0, r.dryRunErr
	}
	return r.cycles, nil
}

func (r *fakeRemote) ResolveCell(_ context.Context, op model.OutPoint) (*model.CellOutput, error) {
	if r.resolveErr != nil {
		return nil, r.resolveErr
	}
	cell, ok := r.cells[op]
	if !ok {
		return nil, nil
	}
	return &cell, nil
}

type fakeNotifier struct {
	topics []string
	err    error
}

func (n *fakeNotifier) record(topic string) error {
	n.topics = append(n.topics, topic)
	return n.err
}

func (n *fakeNotifier) PublishTxStaged(context.Context, events.TxStaged) error {
	return n.record(events.TopicTxStaged)
}

func (n *fakeNotifier) PublishTxSigned(context.Context, events.TxSigned) error {
	return n.record(events.TopicTxSigned)
}

func (n *fakeNotifier) PublishTxRemoved(context.Context, events.TxRemoved) error {
	return n.record(events.TopicTxRemoved)
}

func (n *fakeNotifier) PublishTxVerified(context.Context, events.TxVerified) error {
	return n.record(events.TopicTxVerified)
}

var depToken = strings.Repeat("aa", 32) + "-0"

func newBench(t *testing.T, opts ...Option) *Workbench {
	t.Helper()
	opts = append([]Option{WithLogger(zerolog.New(zerolog.NewTestWriter(t)))}, opts...)
	w := New(t.TempDir(), opts...)

	require.NoError(t, w.AddInput("in1", model.CellInput{PreviousOutput: model.OutPoint{TxHash: model.Hash{0x01}, Index: 0}}))
	require.NoError(t, w.AddInput("in2", model.CellInput{PreviousOutput: model.OutPoint{TxHash: model.Hash{0x02}, Index: 1}}))
	require.NoError(t, w.AddCell("out1", model.CellOutput{Capacity: 6_100_000_000, Lock: model.Script{CodeHash: model.Hash{0x0c}}}))
	require.NoError(t, w.AddCell("out2", model.CellOutput{Capacity: 200, Data: []byte("x"), Lock: model.Script{CodeHash: model.Hash{0x0c}}}))
	return w
}

func requireNothingStaged(t *testing.T, w *Workbench) {
	t.Helper()
	list, err := w.List()
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestAddUnsigned(t *testing.T) {
	notifier := &fakeNotifier{}
	w := newBench(t, WithNotifier(notifier))

	staged, err := w.Add(context.Background(), AddRequest{
		Deps:    []string{depToken},
		Inputs:  []string{"in1"},
		Outputs: []string{"out1"},
	})
	require.NoError(t, err)
	require.Equal(t, staged.Tx.ComputeHash(), staged.Hash)
	require.Len(t, staged.Tx.Witnesses, 1)
	require.True(t, staged.Tx.Witnesses[0].IsEmpty())
	require.Equal(t, byte(0xaa), staged.Tx.Deps[0].TxHash[0])

	shown, err := w.Get(staged.Hash)
	require.NoError(t, err)
	require.Equal(t, staged.View(), shown.View())

	require.Equal(t, []string{events.TopicTxStaged}, notifier.topics)
}

func TestAddRejectsBadDependency(t *testing.T) {
	w := newBench(t)

	_, err := w.Add(context.Background(), AddRequest{
		Deps:    []string{"zz-0"},
		Inputs:  []string{"in1"},
		Outputs: []string{"out1"},
	})
	require.True(t, errors.Is(err, errors.ErrInvalidHash))
	require.Contains(t, err.Error(), "zz-0")
	requireNothingStaged(t, w)

	_, err = w.Add(context.Background(), AddRequest{Deps: []string{"abc"}})
	require.True(t, errors.Is(err, errors.ErrMalformedDependency))
}

func TestAddIsAllOrNothing(t *testing.T) {
	w := newBench(t)

	_, err := w.Add(context.Background(), AddRequest{
		Inputs:  []string{"in1", "ghost"},
		Outputs: []string{"out1"},
	})
	require.True(t, errors.Is(err, errors.ErrUnknownReference))
	require.False(t, errors.Is(err, errors.ErrNotFound))
	require.Contains(t, err.Error(), "ghost")
	requireNothingStaged(t, w)

	_, err = w.Add(context.Background(), AddRequest{
		Inputs:  []string{"in1"},
		Outputs: []string{"nowhere"},
	})
	require.True(t, errors.Is(err, errors.ErrUnknownReference))
	require.False(t, errors.Is(err, errors.ErrNotFound))
	requireNothingStaged(t, w)
}

func TestAddSignFailureLeavesNoRecord(t *testing.T) {
	remote := &fakeRemote{resolveErr: errors.New(errors.RemoteUnavailable, "node down")}
	w := newBench(t, WithRemote(remote))
	_, err := w.GenerateKey("alice")
	require.NoError(t, err)

	_, err = w.Add(context.Background(), AddRequest{
		Inputs:       []string{"in1"},
		Outputs:      []string{"out1"},
		SignWithKeys: true,
	})
	require.True(t, errors.Is(err, errors.ErrRemoteUnavailable))
	requireNothingStaged(t, w)
}

func TestAddAndSign(t *testing.T) {
	w := newBench(t)
	alice, err := w.GenerateKey("alice")
	require.NoError(t, err)

	in1, err := w.GetInput("in1")
	require.NoError(t, err)
	remote := &fakeRemote{cells: map[model.OutPoint]model.CellOutput{
		in1.PreviousOutput: {Capacity: 1000, Lock: model.SignatureLockScript(model.Hash{}, alice)},
	}}
	w = New(w.dbPath, WithRemote(remote))

	staged, err := w.Add(context.Background(), AddRequest{
		Inputs:       []string{"in1"},
		Outputs:      []string{"out1"},
		SignWithKeys: true,
	})
	require.NoError(t, err)
	require.False(t, staged.Tx.Witnesses[0].IsEmpty())

	stored, err := w.Get(staged.Hash)
	require.NoError(t, err)
	require.Equal(t, staged.View(), stored.View())
}

func TestSetWitnessesByKeysOneOfTwo(t *testing.T) {
	remote := &fakeRemote{cells: map[model.OutPoint]model.CellOutput{}}
	w := newBench(t, WithRemote(remote))

	alice, err := w.GenerateKey("alice")
	require.NoError(t, err)
	_, err = w.GenerateKey("bob")
	require.NoError(t, err)

	in1, err := w.GetInput("in1")
	require.NoError(t, err)
	in2, err := w.GetInput("in2")
	require.NoError(t, err)
	other, err := model.GenerateKey("other")
	require.NoError(t, err)
	remote.cells[in1.PreviousOutput] = model.CellOutput{Capacity: 1, Lock: model.SignatureLockScript(model.Hash{}, other)}
	remote.cells[in2.PreviousOutput] = model.CellOutput{Capacity: 2, Lock: model.SignatureLockScript(model.Hash{}, alice)}

	staged, err := w.Add(context.Background(), AddRequest{Inputs: []string{"in1", "in2"}, Outputs: []string{"out1"}})
	require.NoError(t, err)

	signed, n, err := w.SetWitnessesByKeys(context.Background(), staged.Hash)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, staged.Hash, signed.Tx.ComputeHash())
	require.Len(t, signed.Tx.Witnesses, 2)
	require.True(t, signed.Tx.Witnesses[0].IsEmpty())
	require.False(t, signed.Tx.Witnesses[1].IsEmpty())
	require.True(t, signed.Tx.VerifyInputWitness(1, remote.cells[in2.PreviousOutput].Lock))

	stored, err := w.Get(staged.Hash)
	require.NoError(t, err)
	require.Equal(t, signed.View(), stored.View())

	_, _, err = w.SetWitnessesByKeys(context.Background(), model.Hash{0xee})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSetWitnessesByKeysNodeErrorIsUnavailable(t *testing.T) {
	const nodeURL = "http://node.test/rpc"
	client := rpc.NewClient(rpc.Config{URL: nodeURL, Timeout: time.Second}, zerolog.Nop())
	httpmock.ActivateNonDefault(client.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodPost, nodeURL, func(req *http.Request) (*http.Response, error) {
		var body struct {
			Method string `json:"method"`
			Id     uint64 `json:"id"`
		}
		if err := jsoniter.NewDecoder(req.Body).Decode(&body); err != nil {
			return nil, err
		}
		require.Equal(t, "get_live_cell", body.Method)
		return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
			"jsonrpc": "2.0",
			"id":      body.Id,
			"error":   map[string]any{"code": -32000, "message": "node syncing"},
		})
	})

	w := newBench(t, WithRemote(client))
	_, err := w.GenerateKey("alice")
	require.NoError(t, err)
	staged, err := w.Add(context.Background(), AddRequest{Inputs: []string{"in1"}, Outputs: []string{"out1"}})
	require.NoError(t, err)

	_, _, err = w.SetWitnessesByKeys(context.Background(), staged.Hash)
	require.True(t, errors.Is(err, errors.ErrRemoteUnavailable))
	require.False(t, errors.Is(err, errors.ErrRemoteRejected))
	require.Contains(t, err.Error(), "node syncing")
	require.Equal(t, 1, httpmock.GetTotalCallCount())

	stored, err := w.Get(staged.Hash)
	require.NoError(t, err)
	require.Equal(t, staged.View(), stored.View())
}

func TestSetWitnessesByKeysCodeHashFilter(t *testing.T) {
	remote := &fakeRemote{cells: map[model.OutPoint]model.CellOutput{}}
	w := newBench(t, WithRemote(remote), WithSignatureLock(model.SignatureLock{CodeHash: model.Hash{0x5e}}))

	alice, err := w.GenerateKey("alice")
	require.NoError(t, err)
	in1, err := w.GetInput("in1")
	require.NoError(t, err)
	remote.cells[in1.PreviousOutput] = model.CellOutput{Lock: model.SignatureLockScript(model.Hash{0x01}, alice)}

	staged, err := w.Add(context.Background(), AddRequest{Inputs: []string{"in1"}, SignWithKeys: true})
	require.NoError(t, err)
	require.True(t, staged.Tx.Witnesses[0].IsEmpty())
}

func TestSetWitness(t *testing.T) {
	w := newBench(t)
	staged, err := w.Add(context.Background(), AddRequest{Inputs: []string{"in1", "in2"}})
	require.NoError(t, err)

	updated, err := w.SetWitness(staged.Hash, 0, [][]byte{{0x01}, {0x02}})
	require.NoError(t, err)
	require.Len(t, updated.Tx.Witnesses[0].Data, 2)
	require.True(t, updated.Tx.Witnesses[1].IsEmpty())

	_, err = w.SetWitness(staged.Hash, 2, nil)
	require.True(t, errors.Is(err, errors.ErrInvalidIndex))

	_, err = w.SetWitness(model.Hash{0x77}, 0, nil)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestListThree(t *testing.T) {
	w := newBench(t)

	want := map[model.Hash]bool{}
	for _, req := range []AddRequest{
		{Inputs: []string{"in1"}, Outputs: []string{"out1"}},
		{Inputs: []string{"in2"}, Outputs: []string{"out1"}},
		{Inputs: []string{"in1"}, Outputs: []string{"out2"}},
	} {
		staged, err := w.Add(context.Background(), req)
		require.NoError(t, err)
		want[staged.Hash] = true
	}

	list, err := w.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, s := range list {
		require.True(t, want[s.Hash])
		require.Equal(t, s.Hash, s.Tx.ComputeHash())
	}
}

func TestRemoveThenGet(t *testing.T) {
	notifier := &fakeNotifier{err: fmt.Errorf("broker down")}
	w := newBench(t, WithNotifier(notifier))

	staged, err := w.Add(context.Background(), AddRequest{Inputs: []string{"in1"}, Outputs: []string{"out1"}})
	require.NoError(t, err)

	removed, err := w.Remove(context.Background(), staged.Hash)
	require.NoError(t, err)
	require.Equal(t, staged.View(), removed.View())

	_, err = w.Get(staged.Hash)
	require.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = w.Remove(context.Background(), staged.Hash)
	require.True(t, errors.Is(err, errors.ErrNotFound))

	// publish failures are logged only
	require.Equal(t, []string{events.TopicTxStaged, events.TopicTxRemoved}, notifier.topics)
}

func TestVerify(t *testing.T) {
	remote := &fakeRemote{cycles: 5000}
	notifier := &fakeNotifier{}
	w := newBench(t, WithRemote(remote), WithNotifier(notifier))

	staged, err := w.Add(context.Background(), AddRequest{Inputs: []string{"in1"}, Outputs: []string{"out1"}})
	require.NoError(t, err)

	t.Run("unbounded", func(t *testing.T) {
		for _, budget := range []uint64{0, math.MaxUint64} {
			res, err := w.Verify(context.Background(), staged.Hash, budget)
			require.NoError(t, err)
			require.True(t, res.Valid)
			require.Equal(t, uint64(5000), res.Cycles)
			require.Zero(t, res.MaxCycles)
		}
	})

	t.Run("within budget", func(t *testing.T) {
		res, err := w.Verify(context.Background(), staged.Hash, 5000)
		require.NoError(t, err)
		require.True(t, res.Valid)
		require.Equal(t, uint64(5000), res.MaxCycles)
	})

	t.Run("over budget", func(t *testing.T) {
		res, err := w.Verify(context.Background(), staged.Hash, 4999)
		require.True(t, errors.Is(err, errors.ErrBudgetExceeded))
		require.False(t, res.Valid)
		require.Equal(t, uint64(5000), res.Cycles)
	})

	t.Run("unstaged", func(t *testing.T) {
		before := remote.dryRuns
		_, err := w.Verify(context.Background(), model.Hash{0x99}, 0)
		require.True(t, errors.Is(err, errors.ErrNotFound))
		require.Equal(t, before, remote.dryRuns)
	})

	stored, err := w.Get(staged.Hash)
	require.NoError(t, err)
	require.Equal(t, staged.View(), stored.View())
	require.Contains(t, notifier.topics, events.TopicTxVerified)
}

func TestVerifyRemoteFailures(t *testing.T) {
	remote := &fakeRemote{}
	w := newBench(t, WithRemote(remote))
	staged, err := w.Add(context.Background(), AddRequest{Inputs: []string{"in1"}})
	require.NoError(t, err)

	remote.dryRunErr = errors.New(errors.RemoteRejected, "script failed")
	_, err = w.Verify(context.Background(), staged.Hash, 0)
	require.True(t, errors.Is(err, errors.ErrRemoteRejected))

	remote.dryRunErr = errors.New(errors.RemoteUnavailable, "connection refused")
	_, err = w.Verify(context.Background(), staged.Hash, 0)
	require.True(t, errors.Is(err, errors.ErrRemoteUnavailable))

	remote.dryRunErr = fmt.Errorf("something odd")
	_, err = w.Verify(context.Background(), staged.Hash, 0)
	require.True(t, errors.Is(err, errors.ErrRemoteUnavailable))

	noRemote := New(w.dbPath)
	_, err = noRemote.Verify(context.Background(), staged.Hash, 0)
	require.True(t, errors.Is(err, errors.ErrRemoteUnavailable))
}

func TestStoreUnavailable(t *testing.T) {
	w := newBench(t)
	// a regular file cannot be opened as a store directory
	blocked := New(w.dbPath + "/MANIFEST")

	_, err := blocked.ListKeys()
	require.True(t, errors.Is(err, errors.ErrStoreUnavailable))
}

func TestImportKey(t *testing.T) {
	w := newBench(t)

	k, err := w.ImportKey("carol", strings.Repeat("11", 32))
	require.NoError(t, err)

	keys, err := w.ListKeys()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.Equal(t, k.LockArg(), keys[0].LockArg())

	_, err = w.ImportKey("dave", "1234")
	require.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

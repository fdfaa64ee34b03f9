package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopstate/internal/model"
)

func runWithInput(t *testing.T, env *shopEnv, input string) ([]RunReply, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs([]string{"--db", env.db, "--catalog", env.catalog, "run"})
	err := cmd.ExecuteContext(context.Background())

	var replies []RunReply
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		var r RunReply
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r), scanner.Text())
		replies = append(replies, r)
	}
	return replies, err
}

func TestRun_ExecutesCommandsFromInput(t *testing.T) {
	env := newShopEnv(t)

	input := strings.Join([]string{
		`{"kind":"cart.add","product_id":"1","quantity":2}`,
		`{"kind":"cart.add","product_id":3}`,
		``,
		`# comments are skipped`,
		`{"kind":"checkout.cart"}`,
		`{"kind":"orders.advance","order_id":1}`,
	}, "\n")

	replies, err := runWithInput(t, env, input)
	require.NoError(t, err)
	require.Len(t, replies, 4)

	for _, r := range replies {
		assert.Nil(t, r.Error, "line %d", r.Line)
		require.NotNil(t, r.Result, "line %d", r.Line)
	}
	assert.Equal(t, 1, replies[0].Line)
	assert.Equal(t, 5, replies[2].Line)
	assert.Equal(t, []int64{1, 2, 3, 4}, []int64{
		replies[0].Result.Seq, replies[1].Result.Seq, replies[2].Result.Seq, replies[3].Result.Seq,
	})

	require.NotNil(t, replies[2].Result.Order)
	assert.Equal(t, int64(1), replies[2].Result.Order.ID)
	require.NotNil(t, replies[3].Result.Order)
	assert.Equal(t, model.StatusPacked, replies[3].Result.Order.Status)

	// State is durable after the loop exits.
	resp, err := env.runJSON(t, "orders", "show", "1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPacked, decodeData[OrderView](t, resp).Order.Status)
}

func TestRun_ReportsErrorsAndContinues(t *testing.T) {
	env := newShopEnv(t)

	input := strings.Join([]string{
		`not json`,
		`{"kind":"checkout.cart"}`,
		`{"kind":"cart.explode"}`,
		`{"kind":"view","product_id":"2"}`,
	}, "\n")

	replies, err := runWithInput(t, env, input)
	require.NoError(t, err)
	require.Len(t, replies, 4)

	require.NotNil(t, replies[0].Error)
	assert.Equal(t, "PARSE", replies[0].Error.Code)
	require.NotNil(t, replies[1].Error)
	assert.Equal(t, "EMPTY_CART", replies[1].Error.Code)
	require.NotNil(t, replies[2].Error)
	assert.Equal(t, "INVALID_ARGUMENT", replies[2].Error.Code)
	assert.Nil(t, replies[3].Error)
}

func TestRun_ClockResumesAcrossRuns(t *testing.T) {
	env := newShopEnv(t)

	_, err := runWithInput(t, env, `{"kind":"view","product_id":"1"}`)
	require.NoError(t, err)

	replies, err := runWithInput(t, env, `{"kind":"view","product_id":"2"}`)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, int64(2), replies[0].Result.Seq)
}

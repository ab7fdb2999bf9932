package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a simple fake implementing ssmAPI for tests.
type fakeAPI struct {
	getOut  *ssm.GetParameterOutput
	getErr  error
	lastReq *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastReq = in
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("p"), Value: strPtr(`{"token":"v"}`), Type: types.ParameterTypeSecureString,
	}}}
	client, err := New(api)
	require.NoError(t, err)
	v, err := client.GetParameter(context.Background(), " p ")
	require.NoError(t, err)
	require.Equal(t, `{"token":"v"}`, v)
	require.Equal(t, "p", *api.lastReq.Name)
	require.True(t, *api.lastReq.WithDecryption)
}

func TestGetParameter_Errors(t *testing.T) {
	client, err := New(&fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p")}}})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "missing value")

	client, err = New(&fakeAPI{getErr: errors.New("boom")})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")

	_, err = client.GetParameter(context.Background(), "  ")
	require.ErrorContains(t, err, "required")

	_, err = (&Client{}).GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "not initialized")

	_, err = New(nil)
	require.ErrorContains(t, err, "must not be nil")
}

func TestGetParameter_NotFoundIsTyped(t *testing.T) {
	client, err := New(&fakeAPI{getErr: &types.ParameterNotFound{}})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestChain_FallsThroughNotFound(t *testing.T) {
	ssmClient, err := New(&fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: strPtr("from-ssm")}}})
	require.NoError(t, err)

	chain := Chain{Static{"/app/a": "from-env"}, ssmClient}
	v, err := chain.GetParameter(context.Background(), "/app/a")
	require.NoError(t, err)
	require.Equal(t, "from-env", v)

	v, err = chain.GetParameter(context.Background(), "/app/b")
	require.NoError(t, err)
	require.Equal(t, "from-ssm", v)

	_, err = Chain{Static{}}.GetParameter(context.Background(), "/app/c")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestChain_StopsOnHardError(t *testing.T) {
	broken, err := New(&fakeAPI{getErr: errors.New("throttled")})
	require.NoError(t, err)
	_, err = Chain{broken, Static{"x": "y"}}.GetParameter(context.Background(), "x")
	require.ErrorContains(t, err, "throttled")
}

func TestSecret(t *testing.T) {
	v, err := Secret(context.Background(), Static{"k": `{"token":"sk-json"}`}, "k")
	require.NoError(t, err)
	require.Equal(t, "sk-json", v)

	v, err = Secret(context.Background(), Static{"k": "sk-plain"}, "k")
	require.NoError(t, err)
	require.Equal(t, "sk-plain", v)

	_, err = Secret(context.Background(), Static{"k": `{"other":"v"}`}, "k")
	require.ErrorContains(t, err, "empty")

	_, err = Secret(context.Background(), Static{"k": `{"broken`}, "k")
	require.ErrorContains(t, err, "unmarshal")

	_, err = Secret(context.Background(), nil, "k")
	require.ErrorContains(t, err, "nil")

	_, err = Secret(context.Background(), Static{}, " ")
	require.ErrorContains(t, err, "empty")
}

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	config "github.com/hanpama/flatgraph/internal/config"
	ir "github.com/hanpama/flatgraph/internal/ir"
	language "github.com/hanpama/flatgraph/internal/language"
	legacyir "github.com/hanpama/flatgraph/internal/legacyir"
	otel "github.com/hanpama/flatgraph/internal/otel"
	schema "github.com/hanpama/flatgraph/internal/schema"
)

const testSchema = `type Query {
  animal: Animal
}

interface Animal {
  name: String!
}

type Cat implements Animal {
  name: String!
  meowVolume: Int
}

type Dog implements Animal {
  name: String!
  barkVolume: Int
}
`

const testQuery = `query AnimalName {
  animal {
    name
    ... on Dog {
      barkVolume
    }
  }
}
`

type project struct {
	dir       string
	schema    string
	documents string
}

func newProject(t *testing.T, query string) project {
	t.Helper()
	dir := t.TempDir()
	p := project{
		dir:       dir,
		schema:    filepath.Join(dir, "schema.graphql"),
		documents: filepath.Join(dir, "documents"),
	}
	require.NoError(t, os.WriteFile(p.schema, []byte(testSchema), 0o644))
	require.NoError(t, os.MkdirAll(p.documents, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(p.documents, "queries.graphql"), []byte(query), 0o644))
	return p
}

func (p project) args(args ...string) []string {
	return append(args,
		"--schema", p.schema,
		"--documents", p.documents,
		"--env-file", filepath.Join(p.dir, ".env"),
	)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "flatgraph", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"compile", "inspect", "schema"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	flags := newRootCommand().PersistentFlags()

	verbose := flags.Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	config := flags.Lookup("config")
	require.NotNil(t, config)
	assert.Equal(t, "c", config.Shorthand)

	for _, name := range []string{"merge-fragments", "inline-redundant-type-conditions"} {
		f := flags.Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "true", f.DefValue)
	}
}

func TestCompileCommandFlags(t *testing.T) {
	compile, _, err := newRootCommand().Find([]string{"compile"})
	require.NoError(t, err)
	output := compile.Flags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "o", output.Shorthand)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitFailure, exitCode(failure(errors.New("invalid"))))
	assert.Equal(t, exitCommandError, exitCode(commandError(errors.New("io"))))
	assert.Equal(t, exitCommandError, exitCode(errors.New("unknown flag")))
}

func TestCompile(t *testing.T) {
	p := newProject(t, testQuery)

	out, err := execute(t, p.args("compile")...)
	require.NoError(t, err)

	var decoded struct {
		Operations map[string]struct {
			OperationName   string `json:"operationName"`
			InlineFragments []struct {
				TypeCondition string `json:"typeCondition"`
			} `json:"inlineFragments"`
			Fields []struct {
				ResponseName    string `json:"responseName"`
				InlineFragments []struct {
					TypeCondition string `json:"typeCondition"`
					Fields        []struct {
						ResponseName string `json:"responseName"`
					} `json:"fields"`
				} `json:"inlineFragments"`
			} `json:"fields"`
		} `json:"operations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))

	var tree map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &tree))
	assertNoNulls(t, "$", tree)
	raw := tree["operations"].(map[string]any)["AnimalName"].(map[string]any)
	for _, key := range []string{"fields", "fragmentSpreads", "inlineFragments"} {
		assert.Contains(t, raw, key)
	}

	op, ok := decoded.Operations["AnimalName"]
	require.True(t, ok)
	require.Len(t, op.Fields, 1)
	animal := op.Fields[0]
	assert.Equal(t, "animal", animal.ResponseName)
	require.Len(t, animal.InlineFragments, 2)
	assert.Equal(t, "Cat", animal.InlineFragments[0].TypeCondition)
	assert.Equal(t, "Dog", animal.InlineFragments[1].TypeCondition)
	require.Len(t, animal.InlineFragments[1].Fields, 2)
	assert.Equal(t, "barkVolume", animal.InlineFragments[1].Fields[1].ResponseName)
}

func TestCompileToFile(t *testing.T) {
	p := newProject(t, testQuery)
	path := filepath.Join(p.dir, "out.json")

	out, err := execute(t, p.args("compile", "-o", path)...)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"operationName": "AnimalName"`)
}

func TestInspect(t *testing.T) {
	p := newProject(t, testQuery+`
fragment AnimalParts on Animal {
  name
}
`)

	out, err := execute(t, p.args("inspect", "AnimalParts")...)
	require.NoError(t, err)
	assert.Equal(t, "fragment AnimalParts\nTypeCase\n  default -> [name]\n  [Cat Dog] -> [name]\n\n", out)

	out, err = execute(t, p.args("inspect")...)
	require.NoError(t, err)
	assert.Contains(t, out, "operation AnimalName\nTypeCase\n  default -> [animal]\n  [Query] -> [animal]\n")
	assert.Contains(t, out, "fragment AnimalParts\n")
}

func TestSchemaCommand(t *testing.T) {
	p := newProject(t, testQuery)

	out, err := execute(t, p.args("schema")...)
	require.NoError(t, err)
	assert.Contains(t, out, "type Dog implements Animal {\n  name: String!\n  barkVolume: Int\n}\n")
	assert.NotContains(t, out, "schema {")
}

func TestInvalidDocumentsFail(t *testing.T) {
	p := newProject(t, `query Broken { animal { color } }`)

	_, err := execute(t, p.args("compile")...)
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
	assert.Contains(t, err.Error(), "color")
}

func TestMissingSchemaIsCommandError(t *testing.T) {
	p := newProject(t, testQuery)
	p.schema = filepath.Join(p.dir, "missing.graphql")

	_, err := execute(t, p.args("compile")...)
	require.Error(t, err)
	assert.Equal(t, exitCommandError, exitCode(err))
}

func TestUnknownConfigKeyIsCommandError(t *testing.T) {
	p := newProject(t, testQuery)
	config := filepath.Join(p.dir, "flatgraph.yaml")
	require.NoError(t, os.WriteFile(config, []byte("schemas: [schema.graphql]\n"), 0o644))

	_, err := execute(t, p.args("compile", "--config", config)...)
	require.Error(t, err)
	assert.Equal(t, exitCommandError, exitCode(err))
}

func assertNoNulls(t *testing.T, path string, v any) {
	t.Helper()
	switch v := v.(type) {
	case nil:
		t.Errorf("%s is null", path)
	case map[string]any:
		for k, e := range v {
			assertNoNulls(t, path+"."+k, e)
		}
	case []any:
		for i, e := range v {
			assertNoNulls(t, fmt.Sprintf("%s[%d]", path, i), e)
		}
	}
}

func TestFailedRunFlushesErrorSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	var endedAtShutdown []string
	setup := setupTelemetry
	t.Cleanup(func() { setupTelemetry = setup })
	setupTelemetry = func(endpoint, service string) (func(context.Context) error, error) {
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
		unregister := otel.Register(tp.Tracer("test"))
		return func(ctx context.Context) error {
			unregister()
			for _, span := range rec.Ended() {
				endedAtShutdown = append(endedAtShutdown, span.Name())
			}
			return tp.Shutdown(ctx)
		}, nil
	}
	p := newProject(t, `query Broken { animal { color } }`)

	_, err := execute(t, p.args("compile")...)

	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
	assert.Equal(t, []string{"flatgraph.compile"}, endedAtShutdown)
	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestCompileWritesPartialOutputOnFailure(t *testing.T) {
	query := schema.NewType("Query", schema.TypeKindObject, "")
	dog := schema.NewType("Dog", schema.TypeKindObject, "")
	cat := schema.NewType("Cat", schema.TypeKindObject, "")
	field := func(name string) *ir.Field {
		return &ir.Field{ResponseKey: name, Name: name, Type: schema.NamedType("String")}
	}
	c := &ir.Context{Operations: []*ir.Operation{
		{
			OperationName: "Broken",
			OperationType: language.Query,
			RootType:      query,
			SelectionSet: &ir.SelectionSet{
				PossibleTypes: []*schema.Type{dog},
				Selections: []ir.Selection{&ir.TypeCondition{
					Type:         cat,
					SelectionSet: &ir.SelectionSet{PossibleTypes: []*schema.Type{cat}, Selections: []ir.Selection{field("meow")}},
				}},
			},
		},
		{
			OperationName: "Fine",
			OperationType: language.Query,
			RootType:      query,
			SelectionSet:  &ir.SelectionSet{PossibleTypes: []*schema.Type{query}, Selections: []ir.Selection{field("hello")}},
		},
	}}
	out, transformErr := legacyir.Transform(context.Background(), c, legacyir.Options{})
	require.Error(t, transformErr)

	path := filepath.Join(t.TempDir(), "out.json")
	opts := &compileOptions{rootOptions: &rootOptions{cfg: config.Default()}, output: path}
	cmd := &cobra.Command{}
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)

	err := opts.emit(cmd, out, transformErr)

	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
	assert.Contains(t, err.Error(), `operation "Broken"`)
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), `"operationName": "Fine"`)
	assert.NotContains(t, string(data), "Broken")
	assert.Contains(t, stderr.String(), "wrote 1 operation(s), 0 fragment(s)")
}

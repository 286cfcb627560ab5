package interpreter

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractToJSON(t *testing.T) {
	t.Run("extracts agent from new file", func(t *testing.T) {
		out, err := ExtractToJSON(`const agent = {name:"X",description:"Y"};`)

		require.NoError(t, err)
		assert.Equal(t, "{\n  \"name\": \"X\",\n  \"description\": \"Y\"\n}", out)
	})

	t.Run("preserves key order", func(t *testing.T) {
		out, err := ExtractToJSON(`const cfg = {zeta: 1, alpha: 2, mid: {b: true, a: null}};`)

		require.NoError(t, err)
		assert.Equal(t, "{\n  \"zeta\": 1,\n  \"alpha\": 2,\n  \"mid\": {\n    \"b\": true,\n    \"a\": null\n  }\n}", out)
	})

	t.Run("falls back to let and var", func(t *testing.T) {
		out, err := ExtractToJSON("// header\nlet cfg = {a: 1};")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, out)

		out, err = ExtractToJSON("var cfg = {b: 2};")
		require.NoError(t, err)
		assert.JSONEq(t, `{"b":2}`, out)
	})

	t.Run("const is preferred over an earlier let", func(t *testing.T) {
		out, err := ExtractToJSON("let first = {a: 1};\nconst second = {b: 2};")

		require.NoError(t, err)
		assert.JSONEq(t, `{"b":2}`, out)
	})

	t.Run("first declaration wins", func(t *testing.T) {
		out, err := ExtractToJSON("const helper = {h: 1};\nconst agent = {name: \"A\", description: \"B\"};")

		require.NoError(t, err)
		assert.JSONEq(t, `{"h":1}`, out)
	})

	t.Run("unparsable first declaration is not skipped", func(t *testing.T) {
		_, err := ExtractToJSON("const a = {x: compute()};\nconst b = {y: 1};")

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrParse))
	})

	t.Run("relaxed syntax", func(t *testing.T) {
		src := `const a = {
			// line comment
			'single': 'quoted',
			/* block */ hex: 0x10,
			neg: -2.5e1,
			holes: [1,,2,],
			gone: undefined,
			"dup": 1,
			dup: 3,
			1: "numeric key",
		};`
		out, err := ExtractToJSON(src)

		require.NoError(t, err)
		assert.JSONEq(t, `{"single":"quoted","hex":16,"neg":-25,"holes":[1,null,2],"dup":3,"1":"numeric key"}`, out)
	})

	t.Run("closing sequence inside a string", func(t *testing.T) {
		out, err := ExtractToJSON(`const a = {s: "x};y", t: 'it\'s'};`)

		require.NoError(t, err)
		assert.JSONEq(t, `{"s":"x};y","t":"it's"}`, out)
	})

	t.Run("no declaration", func(t *testing.T) {
		_, err := ExtractToJSON("export default function () {}")

		require.Error(t, err)
		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr))
		assert.Equal(t, -1, parseErr.Offset)
		assert.Contains(t, parseErr.Error(), "no object declaration")
	})

	t.Run("missing semicolon", func(t *testing.T) {
		_, err := ExtractToJSON("const a = {x: 1}\nexport default a")

		assert.True(t, errors.Is(err, ErrParse))
	})
}

func TestExtractToJSON_RejectsCode(t *testing.T) {
	cases := map[string]string{
		"call":             `const a = {x: fetch("http://evil")};`,
		"identifier":       `const a = {x: process};`,
		"template literal": "const a = {x: `hi ${name}`};",
		"spread":           `const a = {...other};`,
		"array spread":     `const a = {x: [...other]};`,
		"arrow function":   `const a = {x: () => 1};`,
		"function":         `const a = {x: function () { return 1 }};`,
		"method":           `const a = {run() { return 1 }};`,
		"shorthand":        `const a = {name};`,
		"computed key":     `const a = {[key]: 1};`,
		"new":              `const a = {x: new Date()};`,
		"raw newline":      "const a = {x: \"line\nbreak\"};",
		"open comment":     `const a = {x: 1 /* };`,
		"infinity":         `const a = {x: Infinity};`,
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ExtractToJSON(src)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse), "got %v", err)
		})
	}
}

func TestParseLiteral(t *testing.T) {
	t.Run("escapes", func(t *testing.T) {
		v, err := ParseLiteral(`"\x41\u{1F600}😀\t\\"`)

		require.NoError(t, err)
		assert.Equal(t, "A\U0001F600\U0001F600\t\\", v)
	})

	t.Run("numbers", func(t *testing.T) {
		for src, want := range map[string]float64{
			"42":    42,
			"-7":    -7,
			".5":    0.5,
			"1e3":   1000,
			"0xff":  255,
			"+3.25": 3.25,
		} {
			v, err := ParseLiteral(src)
			require.NoError(t, err, src)
			assert.Equal(t, want, v, src)
		}
	})

	t.Run("top level undefined is null", func(t *testing.T) {
		v, err := ParseLiteral("undefined")

		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("trailing content", func(t *testing.T) {
		_, err := ParseLiteral(`{a: 1} extra`)

		assert.True(t, errors.Is(err, ErrParse))
	})

	t.Run("nesting limit", func(t *testing.T) {
		_, err := ParseLiteral(strings.Repeat("[", 1000) + strings.Repeat("]", 1000))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "nested too deeply")
	})

	t.Run("objects are ordered", func(t *testing.T) {
		v, err := ParseLiteral(`{b: 1, a: 2}`)
		require.NoError(t, err)

		obj, ok := v.(*Object)
		require.True(t, ok)
		assert.Equal(t, "b", obj.Oldest().Key)
		assert.Equal(t, "a", obj.Newest().Key)
	})
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		`{"name":"X","description":"Y"}`,
		`{"nested":{"list":[1,2.5,-3,{"deep":[true,false,null]}],"empty":{},"none":[]}}`,
		`{"text":"quote \" backslash \\ tab \t newline \n html </script> & <b>","unicode":"héllo ✓ 😀"}`,
		`{"big":1.5e300,"small":1e-7,"zero":0,"functions":[{"name":"f","description":"};"}]}`,
	}

	for _, input := range inputs {
		data, err := ParseJSON(input)
		require.NoError(t, err)

		code, err := JSONToCode(data)
		require.NoError(t, err)
		assert.Contains(t, code, "const agent = {")
		assert.True(t, strings.HasSuffix(code, "export default agent;"))

		out, err := ExtractToJSON(code)
		require.NoError(t, err)
		assert.JSONEq(t, input, out)
	}
}

func TestMarshalPretty(t *testing.T) {
	data, err := ParseLiteral(`{html: "<a href='x'>&</a>", list: [], obj: {}}`)
	require.NoError(t, err)

	out, err := MarshalPretty(data)

	require.NoError(t, err)
	assert.Equal(t, "{\n  \"html\": \"<a href='x'>&</a>\",\n  \"list\": [],\n  \"obj\": {}\n}", out)
}

func TestParseJSON(t *testing.T) {
	t.Run("rejects relaxed syntax", func(t *testing.T) {
		_, err := ParseJSON(`{a: 1}`)

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrParse))
		assert.Contains(t, err.Error(), "invalid JSON")
	})

	t.Run("accepts strict json", func(t *testing.T) {
		v, err := ParseJSON(`{"a": [1, "two"]}`)

		require.NoError(t, err)
		obj := v.(*Object)
		val, ok := obj.Get("a")
		require.True(t, ok)
		assert.Equal(t, []interface{}{float64(1), "two"}, val)
	})
}

func TestCleanJSON(t *testing.T) {
	t.Run("plain json is trimmed", func(t *testing.T) {
		out, err := CleanJSON("  {\"a\":1}\n")

		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, out)
	})

	t.Run("script declaration is converted", func(t *testing.T) {
		out, err := CleanJSON("const agent = {name: 'A', description: 'B'};")

		require.NoError(t, err)
		assert.Equal(t, "{\n  \"name\": \"A\",\n  \"description\": \"B\"\n}", out)
	})

	t.Run("bare assignment is accepted", func(t *testing.T) {
		out, err := CleanJSON("// exported config\nmodule.exports = {a: [1, 2]};")

		require.NoError(t, err)
		assert.JSONEq(t, `{"a":[1,2]}`, out)
	})

	t.Run("invalid content", func(t *testing.T) {
		_, err := CleanJSON("not json")
		assert.True(t, errors.Is(err, ErrParse))

		_, err = CleanJSON("// comment only")
		assert.True(t, errors.Is(err, ErrParse))
	})
}

func TestLooksLikeCode(t *testing.T) {
	assert.True(t, LooksLikeCode("const a = {};"))
	assert.True(t, LooksLikeCode(`{"url": "http://x"}`))
	assert.False(t, LooksLikeCode(`{"a": 1}`))
}

func TestAgentFromData(t *testing.T) {
	t.Run("valid agent", func(t *testing.T) {
		def, err := ExtractAgent(`const agent = {
			name: "CodeAssistant",
			description: "Helps",
			models: ["mistral-small-latest"],
			functions: [{name: "generateCode", description: "Generate", parameters: {type: "object"}}],
		};`)

		require.NoError(t, err)
		assert.Equal(t, "CodeAssistant", def.Name)
		assert.Equal(t, "mistral-small-latest", def.PrimaryModel())
		require.Len(t, def.Functions, 1)
		assert.Equal(t, "generateCode", def.Functions[0].Name)
	})

	t.Run("missing description", func(t *testing.T) {
		_, err := ExtractAgent(`const agent = {name: "A"};`)

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrParse))
		assert.Contains(t, err.Error(), "description")
	})

	t.Run("empty name", func(t *testing.T) {
		err := ValidateAgent(map[string]interface{}{"name": "", "description": "d"})

		assert.Error(t, err)
	})

	t.Run("function without name", func(t *testing.T) {
		_, err := AgentFromData(map[string]interface{}{
			"name":        "a",
			"description": "d",
			"functions":   []interface{}{map[string]interface{}{"description": "x"}},
		})

		assert.Error(t, err)
	})
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/oath-lang/oath/pkg/interpreter"
	"github.com/oath-lang/oath/pkg/lexer"
	"github.com/oath-lang/oath/pkg/parser"
	"github.com/oath-lang/oath/pkg/runtime"
)

const (
	replPrompt   = "oath> "
	replContinue = "....> "
)

func runRepl(args []string) int {
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "oath repl does not take arguments (received %s)\n", strings.Join(args, " "))
		return 1
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := replHistoryPath()
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	interp, _ := newInterpreter(os.Stdout)

	fmt.Fprintf(os.Stdout, "%s (:quit to exit)\n", cliVersion)
	var buffer []string
	for {
		prompt := replPrompt
		if len(buffer) > 0 {
			prompt = replContinue
		}
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				buffer = nil
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			return 1
		}

		if len(buffer) == 0 {
			switch strings.TrimSpace(input) {
			case "":
				continue
			case ":quit", ":q", "exit":
				saveReplHistory(line, historyPath)
				return 0
			}
		}

		buffer = append(buffer, input)
		source := strings.Join(buffer, "\n")
		if replNeedsMore(source) {
			continue
		}
		buffer = nil
		line.AppendHistory(source)

		evalReplInput(interp, source)
	}
	saveReplHistory(line, historyPath)
	return 0
}

func evalReplInput(interp *interpreter.Interpreter, source string) {
	module, diags := parser.Parse(source, "<repl>")
	if len(diags) > 0 {
		for _, diag := range diags {
			printDiagnostic(diag)
		}
		return
	}
	value, _, err := interp.EvaluateModule(module)
	if err != nil {
		reportRuntimeError(err)
		return
	}
	if _, isNil := value.(runtime.NilValue); isNil {
		return
	}
	fmt.Fprintln(os.Stdout, interpreter.Stringify(value))
}

// replNeedsMore reports whether the input has unclosed delimiters and the
// reader should keep accepting continuation lines.
func replNeedsMore(source string) bool {
	tokens, err := lexer.Tokenize(source, "<repl>")
	if err != nil {
		// A lex error will be reported on submit.
		return false
	}
	depth := 0
	for _, tok := range tokens {
		switch tok.Kind {
		case lexer.LBrace, lexer.MapOpen, lexer.LParen, lexer.LBracket:
			depth++
		case lexer.RBrace, lexer.RParen, lexer.RBracket:
			if depth > 0 {
				depth--
			}
		}
	}
	return depth > 0
}

func replHistoryPath() string {
	home, err := resolveOathHome()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "history")
}

func saveReplHistory(line *liner.State, path string) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}

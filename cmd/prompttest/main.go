package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"doc-assistant/internal/bootstrap"
	"doc-assistant/internal/extract"
	"doc-assistant/internal/llm"
	"doc-assistant/internal/prompts"
	"doc-assistant/internal/shared/config"
	"doc-assistant/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()

	filePath := flag.String("file", "", "Path to document file (pdf or docx)")
	kindFlag := flag.String("kind", string(prompts.KindSummary), "Analysis kind: summary, key_points, study_questions, detailed_analysis")
	question := flag.String("question", "", "Free-form question; overrides -kind")
	promptsFile := flag.String("prompts", cfg.PromptsFile, "YAML prompt overrides (optional)")
	dryRun := flag.Bool("dry-run", false, "Print the combined prompt without calling the provider")
	outPath := flag.String("out", "", "Path to write the generated text (optional)")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider: anthropic or openai")
	model := flag.String("model", "", "LLM model (default: LLM_MODEL for the configured provider, else the provider default)")
	flag.Parse()

	restore := telemetry.Configure(os.Stderr, cfg.LogLevel)
	defer restore()

	if strings.TrimSpace(*filePath) == "" {
		exitErr("file path is required")
	}
	raw, err := os.ReadFile(*filePath)
	if err != nil {
		exitErr(fmt.Sprintf("read file: %v", err))
	}
	fileName := filepath.Base(*filePath)

	text, err := extract.ExtractTextFromBytes(context.Background(), raw, "", fileName)
	if err != nil {
		exitErr(fmt.Sprintf("extract text: %v", err))
	}

	instruction, err := buildInstruction(*promptsFile, *kindFlag, *question)
	if err != nil {
		exitErr(err.Error())
	}

	if *dryRun {
		writeOutput(*outPath, llm.BuildPrompt(instruction, text))
		return
	}

	cfg, err = cfg.ForProvider(*provider, *model)
	if err != nil {
		exitErr(err.Error())
	}
	if err := cfg.Validate(); err != nil {
		exitErr(err.Error())
	}
	p, err := bootstrap.NewProvider(cfg)
	if err != nil {
		exitErr(err.Error())
	}

	res := llm.NewClient(p).Generate(context.Background(), instruction, text)
	if !res.OK() {
		exitErr(res.Err.Error())
	}
	writeOutput(*outPath, res.Text)
}

func buildInstruction(promptsFile, kindFlag, question string) (string, error) {
	if q := strings.TrimSpace(question); q != "" {
		return prompts.QuestionInstruction(q), nil
	}
	catalog := prompts.Default()
	if strings.TrimSpace(promptsFile) != "" {
		loaded, err := prompts.LoadFile(promptsFile)
		if err != nil {
			return "", err
		}
		catalog = loaded
	}
	kind, err := prompts.ParseKind(kindFlag)
	if err != nil {
		return "", err
	}
	return catalog.Instruction(kind)
}

func writeOutput(outPath, text string) {
	if outPath != "" {
		if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.WriteString(text); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
	if !strings.HasSuffix(text, "\n") {
		_, _ = os.Stdout.Write([]byte("\n"))
	}
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

// Package agent runs the tool-calling loop between the language model and
// the analysis tools.
//
// The model is an Ollama-served chat model reached through langchaingo. Five
// tools are bound to it, one per analysis: load_csv, describe_data,
// plot_trend, find_outliers and correlation_analysis. Each takes a file path
// and returns narrated text, so every analysis result reads the same whether
// it came from a direct API call or from the model.
//
// The executor alternates between two phases: ask the model, then execute
// whatever tool calls its reply carries and feed the outputs back. The loop
// ends when a reply carries no tool calls, or when the iteration guard trips.
// Tool failures are reported to the model as tool output rather than
// aborting the run, which lets it recover or explain the problem.
package agent

package contextmgr

// charsPerToken mirrors the exact heuristic used by pkg/kb's chunker
// and achetronic-adk-utils-go's contextguard compaction code
// (len(text)/4). Budget decisions and reported tokens_in must use the
// same ratio (spec.md §4.1).
const charsPerToken = 4

func estimateTokens(text string) int {
	return len(text) / charsPerToken
}

func tokensToChars(tokens int) int {
	return tokens * charsPerToken
}

package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiModel は翻訳に使用するGeminiのモデル名。
// タイトル翻訳は短文のため軽量モデルで十分。
const geminiModel = "gemini-1.5-flash"

// langNames はプロンプトに埋め込む言語名。未知のコードはそのまま使用する。
var langNames = map[string]string{
	"zh": "Simplified Chinese",
	"ja": "Japanese",
	"en": "English",
}

// GeminiTranslator はGemini APIを使用したTranslatorの実装。
type GeminiTranslator struct {
	client *genai.Client
}

// NewGeminiTranslator はGeminiTranslatorの新しいインスタンスを生成する。
func NewGeminiTranslator(ctx context.Context, apiKey string) (*GeminiTranslator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("Geminiクライアントの生成に失敗しました: %w", err)
	}
	return &GeminiTranslator{client: client}, nil
}

// Close は内部クライアントを解放する。
func (t *GeminiTranslator) Close() {
	if t.client != nil {
		t.client.Close()
	}
}

// Translate はtextをtargetLangに翻訳して返す。
// 固有名詞やブランド名は翻訳しないようプロンプトで指示する。
func (t *GeminiTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	lang := targetLang
	if name, ok := langNames[targetLang]; ok {
		lang = name
	}

	prompt := fmt.Sprintf(
		"Translate the following news title into %s. "+
			"Keep proper nouns and brand names untranslated. "+
			"Return only the translated title, without quotes or explanations.\n\n%s",
		lang, text,
	)

	model := t.client.GenerativeModel(geminiModel)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("翻訳リクエストに失敗しました: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("翻訳レスポンスが空です")
	}

	part, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("翻訳レスポンスの形式が不正です")
	}

	translated := strings.TrimSpace(string(part))
	if translated == "" {
		return "", fmt.Errorf("翻訳結果が空文字列です")
	}

	return translated, nil
}

// compile-time interface check
var _ Translator = (*GeminiTranslator)(nil)

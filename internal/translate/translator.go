// Package translate はタイトル翻訳の判定・キャッシュ・実行を提供する。
//
// 翻訳は付加価値機能であり、翻訳の失敗がパイプラインを
// 失敗させることはない（原文タイトルへのフォールバック）。
package translate

import "context"

// Translator は外部翻訳サービスのインターフェース。
// 失敗しうる前提で設計されており、呼び出し側はベストエフォートとして扱うこと。
type Translator interface {
	// Translate はtextをtargetLangに翻訳して返す。
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

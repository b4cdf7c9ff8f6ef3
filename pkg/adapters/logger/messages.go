package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Player
		"Playing %s":                    "%s を再生中",
		"Already playing %s":            "%s は既に再生中です",
		"Resuming %s":                   "%s を再開します",
		"Paused %s":                     "%s を一時停止しました",
		"Stopped %s":                    "%s を停止しました",
		"Player disposed":               "プレイヤーを破棄しました",
		"Opened %s: %s %dx%d, %v":       "%s を開きました: %s %dx%d, %v",
		"Output strategy: %s":           "出力方式: %s",
		"Ignoring %s: %v":               "%s を無視します: %v",
		"Playback ended with error: %v": "再生がエラーで終了しました: %v",

		// Decode worker
		"Decode worker started":            "デコードワーカーを開始しました",
		"Decode worker stopped":            "デコードワーカーを停止しました",
		"Input complete":                   "入力が完了しました",
		"End of stream reached":            "ストリームの終端に達しました",
		"Frame went back in time: %v < %v": "フレームの時刻が戻りました: %v < %v",
		"Skipping late frame at %v":        "遅延フレームをスキップします: %v",
		"Release frame failed: %v":         "フレームの解放に失敗しました: %v",
		"Decoder stop failed: %v":          "デコーダーの停止に失敗しました: %v",
		"Demuxer close failed: %v":         "デマルチプレクサのクローズに失敗しました: %v",
		"Decoder released":                 "デコーダーを解放しました",
		"Decode loop failed: %v":           "デコードループが失敗しました: %v",

		// Decoder backends
		"Decoder backend: %s (%s)":               "デコーダーバックエンド: %s (%s)",
		"Decoder backend failed: %v":             "デコーダーバックエンドが失敗しました: %v",
		"Starting ffmpeg: %s":                    "ffmpeg を起動中: %s",
		"ffmpeg exited: %v":                      "ffmpeg が終了しました: %v",
		"Skipping inter frame without key frame": "キーフレームのないインターフレームをスキップします",

		// Output
		"Frame dropped: %v":     "フレームを破棄しました: %v",
		"Conversion failed: %v": "変換に失敗しました: %v",

		// CLI
		"Saved frame %d to %s":            "フレーム %d を %s に保存しました",
		"Presented %d frames, %d skipped": "%d フレームを表示しました (%d スキップ)",
		"Interrupted, shutting down...":   "中断されました。シャットダウン中...",
		"Summary written to %s":           "サマリーを %s に書き出しました",
		"Failed to write summary: %v":     "サマリーの書き出しに失敗しました: %v",
	})
}

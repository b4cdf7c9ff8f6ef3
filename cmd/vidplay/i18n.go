// Package main provides localization for the vidplay CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		"Play MP4 videos through the frame pipeline": "MP4動画をフレームパイプラインで再生",

		// Global flags
		"YAML configuration file":              "YAML設定ファイル",
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Log format (console, json, text)":     "ログ形式（console, json, text）",
		"Suppress all log output":              "すべてのログ出力を抑制",
		"exactly one video file is required":   "動画ファイルを1つだけ指定してください",

		// Probe command
		"Describe the video track of a file": "ファイルの映像トラックを表示",
		"Directory to save probe.yaml in":    "probe.yamlを保存するディレクトリ",

		// Play command
		"Play a file and save snapshots of presented frames": "ファイルを再生し、表示されたフレームのスナップショットを保存",
		"Output strategy (auto, packed, planar, swizzle)":    "出力方式（auto, packed, planar, swizzle）",
		"Directory for PNG snapshots":                        "PNGスナップショットの保存先",
		"Drop frames that fall behind the playback clock":    "再生時刻に遅れたフレームを破棄",
		"Stop after this much playback time":                 "指定した再生時間で停止",
		"Write a Markdown playback summary to this path":     "再生サマリーをMarkdownでこのパスに書き出す",

		// Texture command
		"Load an .astc texture and describe it": "ASTCテクスチャを読み込んで内容を表示",
		"Treat the texture as sRGB":             "テクスチャをsRGBとして扱う",
		"%d bytes of block data":                "ブロックデータ %d バイト",

		// Version command
		"Show version information": "バージョン情報を表示",
		"vidplay version %s":       "vidplay バージョン %s",
	})
}

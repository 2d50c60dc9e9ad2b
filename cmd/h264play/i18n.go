// Package main provides localization for the h264play CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Configuration":    "設定",
		"Logging":          "ログ",
		"Playback":         "再生",
		"Output":           "出力先",
		"Preset":           "プリセット",
		"Sampling":         "フレーム抽出",
		"Layout and Style": "レイアウトとスタイル",
		"Banner":           "バナー",
		"Performance":      "パフォーマンス",
		"Stream":           "ストリーム",
		"Debug":            "デバッグ",

		// Root command
		"Play and inspect raw H.264 streams": "生のH.264ストリームを再生・解析",
		"h264play decodes Annex-B H.264 elementary streams (baseline and main profile, CAVLC) for playback, probing and contact sheets.": "h264playはAnnex-B形式のH.264エレメンタリストリーム（Baseline/Mainプロファイル、CAVLC）をデコードし、再生・解析・コンタクトシート作成を行います。",

		// Global flags
		"YAML configuration file":                              "YAML設定ファイル",
		"Log level (debug, info, warn, error)":                 "ログレベル（debug, info, warn, error）",
		"Log format (console, text, json)":                     "ログ形式（console, text, json）",
		"Write logs to a rotating file instead of the console": "コンソールの代わりにローテーションするファイルへログを出力",
		"Suppress all log output":                              "全てのログ出力を抑制",

		// Play command
		"Play a raw H.264 stream into an offscreen frame buffer":  "生のH.264ストリームをオフスクリーンのフレームバッファに再生",
		"Playback rate in frames per second":                      "再生レート（フレーム/秒）",
		"Restart from the first frame at the end of the stream":   "ストリームの終端で最初のフレームから再開",
		"Stop after this many loops when repeating (0 = forever)": "リピート時にこの回数ループしたら停止（0 = 無制限）",
		"Stop after this much wall-clock time (0 = no limit)":     "この実時間が経過したら停止（0 = 無制限）",
		"Pixel format of the frame buffer (bgra, rgba)":           "フレームバッファのピクセル形式（bgra, rgba）",
		"Save every published frame as PNG":                       "表示された全フレームをPNGとして保存",

		// Snapshot command
		"Render a contact sheet of decoded frames":                   "デコードしたフレームのコンタクトシートを作成",
		"Output image path (single input only)":                      "出力画像のパス（入力が1つの場合のみ）",
		"Directory for contact sheets when several inputs are given": "複数入力時のコンタクトシート出力ディレクトリ",
		"Image format (png, jpg)":                                    "画像形式（png, jpg）",
		"JPEG quality (1-100, overrides quality preset)":             "JPEG品質（1-100、品質プリセットを上書き）",
		"Write a stream summary next to each sheet (md or json)":     "各シートの隣にストリームのサマリーを出力（md または json）",
		"Sheet preset (overview, filmstrip)":                         "シートのプリセット（overview, filmstrip）",
		"Quality preset (low, medium, high)":                         "品質プリセット（low, medium, high）",
		"Number of frames on the sheet":                              "シートに並べるフレーム数",
		"Keep every Nth decoded frame":                               "デコードしたフレームをNフレームごとに採用",
		"Number of columns (min: 1)":                                 "カラム数（最小: 1）",
		"Thumbnail width in pixels":                                  "サムネイルの幅（ピクセル）",
		"Background color (hex, e.g., #1e1e1e)":                      "背景色（16進数、例: #1e1e1e）",
		"Border color (hex, e.g., #505050)":                          "枠線の色（16進数、例: #505050）",
		"Hide thumbnail captions":                                    "サムネイルのキャプションを非表示",
		"Hide the stream banner":                                     "ストリームのバナーを非表示",
		"Custom text shown in banner (default: h264play)":            "バナーに表示するカスタムテキスト（デフォルト: h264play）",
		"Parallel inputs and thumbnail workers (0 = number of CPUs)": "並列処理する入力とサムネイルのワーカー数（0 = CPU数）",
		"Save decoded frames and intermediate results":               "デコードしたフレームと中間結果を保存",
		"Directory for debug output":                                 "デバッグ出力のディレクトリ",

		// Probe command
		"Report NAL units, parameter sets and decoder statistics": "NALユニット、パラメータセット、デコード統計を表示",
		"Print JSON instead of Markdown":                          "MarkdownではなくJSONで出力",
		"Write one report per input into this directory":          "入力ごとのレポートをこのディレクトリに出力",
		"Fail when a stream cannot be decoded to the end":         "ストリームを最後までデコードできない場合はエラーにする",

		// Generate command
		"Write a synthetic colour bar test stream":             "カラーバーのテスト用ストリームを生成",
		"Output H.264 file path (required)":                    "出力H.264ファイルパス（必須）",
		"Picture width, rounded up to a multiple of 16":        "画像の幅（16の倍数に切り上げ）",
		"Picture height, rounded up to a multiple of 16":       "画像の高さ（16の倍数に切り上げ）",
		"Number of frames":                                     "フレーム数",
		"Frames between IDR pictures":                          "IDRピクチャの間隔（フレーム数）",
		"Frame rate written to the SPS timing info (0 = none)": "SPSのタイミング情報に書き込むフレームレート（0 = なし）",
		"Insert non-reference B slices the player must skip":   "プレイヤーがスキップすべき非参照Bスライスを挿入",

		// Version command
		"Show version information": "バージョン情報を表示",
		"h264play version %s":      "h264play バージョン %s",

		// Runtime messages
		"Playing %s at %.2f fps": "%s を %.2f fps で再生中",
		"Published %d frames (%d loops, %d damaged frames held back)": "%d フレームを表示しました（ループ %d 回、破損により保留したフレーム %d）",
		"Interrupted, stopping playback":                              "中断されました。再生を停止します",
		"Contact sheet saved to %s (%dx%d, %d of %d frames)":          "コンタクトシートを %s に保存しました（%dx%d、%d / %d フレーム）",
		"Summary saved to %s":                                         "サマリーを %s に保存しました",
		"Failed to write summary: %v":                                 "サマリーの書き込みに失敗しました: %v",
		"Failed to remove stale sheet %s: %v":                         "古いシート %s の削除に失敗しました: %v",
		"Removed stale sheet %s":                                      "古いシート %s を削除しました",
		"Decoding stopped: %v":                                        "デコードが中断されました: %v",
		"Wrote %d frames (%d bytes) to %s":                            "%[1]d フレーム（%[2]d バイト）を %[3]s に書き込みました",

		// Summary content
		"Stream Summary":      "ストリームサマリー",
		"File":                "ファイル",
		"Container":           "コンテナ",
		"Size":                "サイズ",
		"Sequence Parameters": "シーケンスパラメータ",
		"Resolution":          "解像度",
		"Reference Frames":    "参照フレーム数",
		"Matrix":              "色変換行列",
		"NAL Units":           "NALユニット",
		"Name":                "名前",
		"Count":               "件数",
		"Decoding":            "デコード",
		"Slices":              "スライス",
		"Frames":              "フレーム",
		"Skipped Units":       "スキップしたユニット",
		"Concealed Frames":    "補間したフレーム",
		"Failure":             "エラー",
		"Contact Sheet":       "コンタクトシート",
		"Canvas":              "キャンバス",
		"Generated at":        "生成日時",

		// Error messages
		"Exactly one stream argument is required":           "ストリーム引数を1つだけ指定してください",
		"At least one stream argument is required":          "ストリーム引数が少なくとも1つ必要です",
		"--output accepts a single input, use --output-dir": "--output は入力が1つの場合のみ有効です。--output-dir を使用してください",
		"Width and height must be positive":                 "幅と高さは正の値である必要があります",
	})
}

package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration
		"Starting pipeline":               "パイプラインを開始します",
		"Pipeline completed successfully": "パイプラインが正常に完了しました",
		"Failed to read %s: %v":           "%s の読み込みに失敗しました: %v",
		"Failed to write output: %v":      "出力の書き込みに失敗しました: %v",

		// Source
		"Read %d bytes from %s": "%[2]s から %[1]d バイトを読み込みました",
		"Failed to load %s: %v": "%s の読み込みに失敗しました: %v",

		// Decode stage
		"Decoding %s (%d bytes)":              "%s をデコード中 (%d バイト)",
		"Decoded %d frames, %d skipped units": "%d フレームをデコードしました（スキップしたユニット %d）",
		"Decoded %d frames from %s, kept %d":  "%[2]s から %[1]d フレームをデコードし、%[3]d フレームを採用しました",
		"Failed to decode stream: %v":         "ストリームのデコードに失敗しました: %v",
		"Failed to save debug frame %d: %v":   "デバッグ用フレーム %d の保存に失敗しました: %v",

		// Decoder
		"Stored SPS %d: %dx%d, %d reference frames":  "SPS %d を保存: %dx%d, 参照フレーム %d",
		"Stored PPS %d for SPS %d":                   "SPS %[2]d 用の PPS %[1]d を保存しました",
		"Activating SPS %d":                          "SPS %d を有効化",
		"Skipping NAL unit: %v":                      "NALユニットをスキップ: %v",
		"Skipping NAL unit at offset %d: %v":         "オフセット %d の NALユニットをスキップ: %v",
		"Skipping redundant slice of frame %d":       "フレーム %d の冗長スライスをスキップ",
		"Concealed %d of %d macroblocks in frame %d": "フレーム %[3]d のマクロブロック %[2]d 個中 %[1]d 個を補間しました",
		"Reference frame %d evicted":                 "参照フレーム %d を破棄しました",
		"Reference frame %d unmarked":                "参照フレーム %d の参照指定を解除しました",
		"Ignoring long-term marking operation %d":    "長期参照の操作 %d を無視します",

		// Layout stage
		"Calculating layout":                          "レイアウトを計算中",
		"Layout calculated: %dx%d canvas, %d columns": "レイアウト計算完了: %dx%d キャンバス, %d カラム",
		"Failed to calculate layout: %v":              "レイアウトの計算に失敗しました: %v",

		// Banner stage
		"Generating banner":             "バナーを生成中",
		"Banner generated: %dx%d":       "バナーを生成しました: %dx%d",
		"Failed to generate banner: %v": "バナーの生成に失敗しました: %v",

		// Composite stage
		"Compositing %d frames":                 "%d フレームを合成中",
		"Compositing %d frames with %d workers": "%d フレームを %d ワーカーで合成中",
		"Composition completed":                 "合成が完了しました",
		"Failed to composite frames: %v":        "フレームの合成に失敗しました: %v",
		"Failed to save contact sheet: %v":      "コンタクトシートの保存に失敗しました: %v",

		// Encode stage
		"Encoded %s, %d bytes":       "%s にエンコードしました（%d バイト）",
		"Failed to encode image: %v": "画像のエンコードに失敗しました: %v",

		// Player
		"Source loaded, %d bytes":                                            "ソースを読み込みました（%d バイト）",
		"Resizing render target from %dx%d to %dx%d":                         "描画先を %dx%d から %dx%d にリサイズします",
		"Frame %d damaged, %d macroblocks concealed; keeping previous frame": "フレーム %d が破損しています（%d マクロブロックを補間）。前のフレームを保持します",
		"Looping, pass %d":                                                   "ループ再生 %d 回目",
		"Playback ended after %d frames":                                     "%d フレームで再生を終了しました",
		"Paused":                                                             "一時停止しました",
		"Resumed":                                                            "再開しました",
		"Restarted":                                                          "先頭から再開しました",
		"Replaying from the start":                                           "最初から再生します",
	})
}

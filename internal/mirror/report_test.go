package mirror_test

import (
	"testing"

	"mirrorvault/internal/mirror"
)

const spanishSummary = `
-------------------------------------------------------------------------------
   ROBOCOPY     ::     Herramienta para copia eficaz de archivos
-------------------------------------------------------------------------------
  Archivos: *.*

------------------------------------------------------------------------------

               Total    Copiado   Omitido  No coincidencia     ERROR    Extras
Directorios:         1         0         1         0         0         0
 Archivos:         2         1         1         0         0         0
    Bytes:    28.9 k    14.4 k    14.4 k         0         0         0
`

const englishSummary = `
               Total    Copied   Skipped  Mismatch    FAILED    Extras
    Dirs :        12         3         9         0         0         0
   Files :       120        42        78         0         0         0
   Bytes :   1.500 g   512.0 m   1.000 g         0         0         0
   Times :   0:00:12   0:00:05                       0:00:00   0:00:07
`

func TestParseReport(t *testing.T) {
	tests := []struct {
		name  string
		input string
		files int64
		bytes int64
	}{
		// 14.4 * 1024 = 14745.6, truncated.
		{"spanish summary", spanishSummary, 1, 14745},
		{"english summary", englishSummary, 42, 512 * 1024 * 1024},
		{"compact rows", "Archivos: 2 1 1 0 0 0\nBytes: 28.9 k 14.4 k 14.4 k 0 0 0", 1, 14745},
		{"plain byte counts", "Files : 3 3 0 0 0 0\nBytes : 900 512 388 0 0 0", 3, 512},
		{"combined unit tokens", "Bytes : 2.0k 1.5t 0 0 0 0", 0, int64(1.5 * (1 << 40))},
		{"single column", "Bytes : 7 m", 0, 7 * 1024 * 1024},
		{"garbage columns", "Files : x y z\nBytes : abc def", 0, 0},
		{"header only", "  Files : *.*\n", 0, 0},
		{"empty", "", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mirror.ParseReport(tt.input)
			if got.FilesCopied != tt.files || got.BytesTransferred != tt.bytes {
				t.Fatalf("ParseReport = %+v, want files=%d bytes=%d", got, tt.files, tt.bytes)
			}
		})
	}
}

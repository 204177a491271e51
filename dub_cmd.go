package main

import (
	"fmt"

	"github.com/dgnsrekt/narrator/tts/pipeline"
	"github.com/dgnsrekt/narrator/tts/subtitle"
	"github.com/spf13/cobra"
)

var (
	dubOutput string

	dubCmd = &cobra.Command{
		Use:   "dub SUBTITLES.srt",
		Short: "Voice a subtitle track on its timeline",
		Long: paragraph(fmt.Sprintf("\n%s every cue of an SRT track so that speech starts with its cue "+
			"and the whole track ends with the last one. Cues that cannot be voiced become silence.", keyword("Voice"))),
		Example: paragraph("narrator dub episode.srt\nnarrator dub episode.srt -o episode.mp3 --speed 1.2"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := expandPath(args[0])
			cues, err := subtitle.ParseFile(path)
			if err != nil {
				return err //nolint:wrapcheck
			}
			if len(cues) == 0 {
				return fmt.Errorf("%s: no cues found", path)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			output := expandPath(dubOutput)
			if output == "" {
				output = defaultOutput(path)
			}
			_, err = runJob(cmd, cfg, pipeline.NewSubtitleJob(cues, output))
			return err
		},
	}
)

func init() {
	dubCmd.Flags().StringVarP(&dubOutput, "output", "o", "", "output file (default: subtitle name with .wav)")
}

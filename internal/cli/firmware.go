package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/h2non/filetype"
	"github.com/spf13/cobra"

	"github.com/fleetwave/fleetwave/internal/common/httpclient"
	"github.com/fleetwave/fleetwave/internal/fleetapi"
)

// firmwareCmd represents the firmware command group
var firmwareCmd = &cobra.Command{
	Use:   "firmware",
	Short: "Manage firmware images and fleet assignments",
	Long: `Manage firmware images and fleet assignments.

Upload firmware images to the workspace, then assign an uploaded image
to a fleet. Devices in the fleet pick up the assigned firmware on their
next check-in.`,
}

var (
	firmwareImage      string
	firmwareVersion    string
	firmwareMinVersion string
	firmwareFile       string
	firmwareName       string
)

// firmwareAssignCmd assigns an uploaded firmware image to a fleet.
var firmwareAssignCmd = &cobra.Command{
	Use:   "assign FLEET --image IMAGE --version VERSION [flags]",
	Short: "Assign a firmware image to a fleet",
	Long: `Assign a firmware image to a fleet. The version must be valid semantic
versioning, and when --min-version is given the version must satisfy the
constraint before anything is sent to the server.

Examples:
  # Roll sensor-fw v2.3.1 out to the edge fleet
  fleetwave firmware assign edge --image sensor-fw --version v2.3.1

  # Refuse to assign anything older than the 2.x line
  fleetwave firmware assign edge --image sensor-fw --version v2.3.1 --min-version ">= 2.0.0"`,
	Args: cobra.ExactArgs(1),
	RunE: assignFirmware,
}

func assignFirmware(cmd *cobra.Command, args []string) error {
	fleetName := args[0]

	v, err := semver.NewVersion(firmwareVersion)
	if err != nil {
		return fmt.Errorf("invalid firmware version %q: %v", firmwareVersion, err)
	}
	if firmwareMinVersion != "" {
		c, err := semver.NewConstraint(firmwareMinVersion)
		if err != nil {
			return fmt.Errorf("invalid version constraint %q: %v", firmwareMinVersion, err)
		}
		if !c.Check(v) {
			return fmt.Errorf("firmware version %s does not satisfy %q", firmwareVersion, firmwareMinVersion)
		}
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	body, err := json.Marshal(map[string]string{
		"image":   firmwareImage,
		"version": firmwareVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to build assign request: %w", err)
	}

	out := rt.exec.Execute(cmd.Context(), fleetapi.Descriptor{
		Method: http.MethodPost,
		Path:   "v1/fleets/" + fleetName + "/firmware",
		Body:   body,
		DryRun: dryRun,
	})
	if out.Status == fleetapi.StatusDryRun {
		return renderDryRun(out)
	}
	if err := outcomeError(out); err != nil {
		return err
	}

	if jsonOutput {
		var value any
		if err := json.Unmarshal(out.Payload, &value); err != nil {
			return fmt.Errorf("failed to parse response: %v", err)
		}
		printJSON(map[string]any{"result": 1, "value": value})
		return nil
	}
	okLabel.Fprintf(os.Stdout, "[OK] ")
	fmt.Fprintf(os.Stdout, "Assigned %s %s to fleet %s\n", firmwareImage, firmwareVersion, fleetName)
	return nil
}

// firmwareUploadCmd uploads a raw firmware image.
var firmwareUploadCmd = &cobra.Command{
	Use:   "upload -f FILENAME [flags]",
	Short: "Upload a firmware image",
	Long: `Upload a firmware image to the workspace. The media type is sniffed
from the file contents; unrecognized formats are uploaded as
application/octet-stream.

Examples:
  # Upload an image under its file name
  fleetwave firmware upload -f sensor-fw-2.3.1.bin

  # Upload under an explicit image name
  fleetwave firmware upload -f build/out.bin --name sensor-fw-2.3.1`,
	RunE: uploadFirmware,
}

// uploadFirmware sends the image bytes as-is. The request engine carries
// JSON bodies only, so the upload goes over the transport directly after
// the session is resolved.
func uploadFirmware(cmd *cobra.Command, args []string) error {
	if firmwareFile == "" {
		return fmt.Errorf("filename is required")
	}
	data, err := os.ReadFile(firmwareFile)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", firmwareFile, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%s is empty", firmwareFile)
	}

	name := firmwareName
	if name == "" {
		name = filepath.Base(firmwareFile)
	}

	contentType := "application/octet-stream"
	if kind, _ := filetype.Match(data); kind != filetype.Unknown {
		contentType = kind.MIME.Value
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if _, err := rt.store.Resolve(cmd.Context()); err != nil {
		return fmt.Errorf("upload failed: %w: run \"fleetwave set-workspace <workspace>\"", err)
	}

	res, err := rt.client.Do(cmd.Context(), httpclient.RequestOptions{
		Method: http.MethodPost,
		Path:   "v1/firmware/images",
		Headers: map[string]string{
			"Content-Type":    contentType,
			"X-Firmware-Name": name,
		},
		Body: data,
	})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	if res.StatusCode != http.StatusCreated {
		return fmt.Errorf("upload failed: %s", serverMessage(res))
	}

	if jsonOutput {
		var value any
		if err := json.Unmarshal(res.Body, &value); err != nil {
			value = string(res.Body)
		}
		printJSON(map[string]any{"result": 1, "value": value, "location": res.Location})
		return nil
	}
	okLabel.Fprintf(os.Stdout, "[OK] ")
	fmt.Fprintf(os.Stdout, "Uploaded %s (%d bytes, %s)\n", name, len(data), contentType)
	if res.Location != "" {
		fmt.Fprintf(os.Stdout, "Location: %s\n", res.Location)
	}
	return nil
}

// serverMessage extracts an error message from a raw response, falling back
// to the status line.
func serverMessage(res *httpclient.RawResult) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(res.Body, &body); err == nil {
		if body.Error.Message != "" {
			return body.Error.Message
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return res.Status
}

// init initializes the firmware commands with their flags and adds them to the root command
func init() {
	firmwareAssignCmd.Flags().StringVar(&firmwareImage, "image", "", "Name of an uploaded firmware image")
	firmwareAssignCmd.Flags().StringVar(&firmwareVersion, "version", "", "Semantic version of the image")
	firmwareAssignCmd.Flags().StringVar(&firmwareMinVersion, "min-version", "", "Version constraint the assignment must satisfy")
	firmwareAssignCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render the request without sending it")
	firmwareAssignCmd.MarkFlagRequired("image")
	firmwareAssignCmd.MarkFlagRequired("version")

	firmwareUploadCmd.Flags().StringVarP(&firmwareFile, "filename", "f", "", "Path to the firmware image file")
	firmwareUploadCmd.Flags().StringVar(&firmwareName, "name", "", "Image name (defaults to the file name)")
	firmwareUploadCmd.MarkFlagRequired("filename")

	firmwareCmd.AddCommand(firmwareAssignCmd)
	firmwareCmd.AddCommand(firmwareUploadCmd)
	rootCmd.AddCommand(firmwareCmd)
}

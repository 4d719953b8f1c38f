package cnn_go

import (
	"bufio"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	// CIFAR10Dir Directory under dataset root which holds binary version of CIFAR-10
	CIFAR10Dir = "cifar-10-batches-bin"

	cifarPixelBytes  = ImageSize
	cifarRecordBytes = cifarPixelBytes + 1
)

var (
	cifarTrainFiles = []string{"data_batch_1.bin", "data_batch_2.bin", "data_batch_3.bin", "data_batch_4.bin", "data_batch_5.bin"}
	cifarTestFiles  = []string{"test_batch.bin"}

	// CIFAR10Classes Default class names used when batches.meta.txt is absent
	CIFAR10Classes = []string{"plane", "car", "bird", "cat", "deer", "dog", "frog", "horse", "ship", "truck"}
)

// CIFAR10 Train or test split of CIFAR-10 held as raw records.
// Pixels are decoded on demand by Sample, so decoding work lands on loader workers.
type CIFAR10 struct {
	Classes []string
	Train   bool
	records []byte
	n       int
}

// LoadCIFAR10 Reads CIFAR-10 binary files from root directory
//
// root - dataset root; files are expected in root/cifar-10-batches-bin
// train - true for 50000 training images, false for 10000 test images
//
// Returns ErrDataUnavailable (wrapped) when any of expected files is missing. Nothing is downloaded.
//
func LoadCIFAR10(root string, train bool) (*CIFAR10, error) {
	dir := filepath.Join(root, CIFAR10Dir)
	files := cifarTestFiles
	if train {
		files = cifarTrainFiles
	}
	ds := &CIFAR10{Train: train}
	for _, name := range files {
		pathName := filepath.Join(dir, name)
		data, err := ioutil.ReadFile(pathName)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrapf(ErrDataUnavailable, "file %s is missing and download is disabled", pathName)
			}
			return nil, errors.Wrapf(err, "Can't read %s", pathName)
		}
		if len(data)%cifarRecordBytes != 0 {
			return nil, fmt.Errorf("incomplete record in %s: %d bytes is not a multiple of %d", pathName, len(data), cifarRecordBytes)
		}
		for i := 0; i < len(data); i += cifarRecordBytes {
			if label := int(data[i]); label >= NumClasses {
				return nil, fmt.Errorf("record #%d in %s has label %d out of range [0;%d)", i/cifarRecordBytes, pathName, label, NumClasses)
			}
		}
		ds.records = append(ds.records, data...)
	}
	ds.n = len(ds.records) / cifarRecordBytes

	classes, err := readClasses(filepath.Join(dir, "batches.meta.txt"))
	if err != nil {
		return nil, err
	}
	ds.Classes = classes
	return ds, nil
}

// Len Returns number of images
func (ds *CIFAR10) Len() int { return ds.n }

// Sample Decodes i-th record. Pixel bytes are scaled to [0;1]
func (ds *CIFAR10) Sample(i int) (Sample, error) {
	if i < 0 || i >= ds.n {
		return Sample{}, fmt.Errorf("sample index %d out of range [0;%d)", i, ds.n)
	}
	rec := ds.records[i*cifarRecordBytes : (i+1)*cifarRecordBytes]
	img := make([]float64, cifarPixelBytes)
	for j, b := range rec[1:] {
		img[j] = float64(b) / 255.0
	}
	return Sample{Image: img, Label: int(rec[0])}, nil
}

// readClasses Loads class descriptions. Falls back to default names when file is absent
func readClasses(pathName string) ([]string, error) {
	f, err := os.Open(pathName)
	if err != nil {
		if os.IsNotExist(err) {
			return append([]string{}, CIFAR10Classes...), nil
		}
		return nil, errors.Wrapf(err, "Can't open %s", pathName)
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	classes := []string{}
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line != "" {
			classes = append(classes, line)
		}
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrapf(err, "Can't read %s", pathName)
	}
	if len(classes) != NumClasses {
		return nil, fmt.Errorf("%s lists %d classes, but %d expected", pathName, len(classes), NumClasses)
	}
	return classes, nil
}

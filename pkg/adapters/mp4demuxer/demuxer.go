// Package mp4demuxer reads the first video track of an MP4 file as a
// forward-only stream of compressed samples.
package mp4demuxer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/user/supervideo/pkg/ports"
)

type sampleRef struct {
	offset   uint64
	size     uint32
	pts      int64
	end      int64
	keyframe bool
	// data is set for fragmented files, whose samples are decoded in full.
	data []byte
}

// Demuxer implements ports.Demuxer over an MP4 file.
type Demuxer struct {
	file    io.ReadSeeker
	closer  io.Closer
	source  ports.MediaSource
	samples []sampleRef
	pos     int

	avc       bool
	paramSets []byte
}

// Opener implements ports.DemuxerOpener on a file system.
type Opener struct {
	fs ports.FileSystem
}

// NewOpener creates an opener reading through fs.
func NewOpener(fs ports.FileSystem) *Opener {
	return &Opener{fs: fs}
}

// Open opens path and selects its first video track.
func (o *Opener) Open(path string) (ports.Demuxer, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ports.ErrInvalidArgument)
	}
	exists, err := o.fs.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ports.ErrNotFound, path)
	}
	f, err := o.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	d, err := NewFromReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	d.closer = f
	return d, nil
}

// NewFromReader parses an MP4 stream. The reader must stay open until
// the demuxer is closed.
func NewFromReader(r io.ReadSeeker) (*Demuxer, error) {
	mp4File, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}

	moov := mp4File.Moov
	if moov == nil && mp4File.Init != nil {
		moov = mp4File.Init.Moov
	}
	if moov == nil {
		return nil, fmt.Errorf("%w: no moov box", ports.ErrNoVideoTrack)
	}

	index := -1
	var trak *mp4.TrakBox
	var mime string
	for i, t := range moov.Traks {
		m := mimeForTrack(t)
		if strings.HasPrefix(m, "video/") {
			index, trak, mime = i, t, m
			break
		}
	}
	if trak == nil {
		return nil, ports.ErrNoVideoTrack
	}

	d := &Demuxer{
		file: r,
		avc:  mime == MimeAVC,
		source: ports.MediaSource{
			TrackIndex: index,
			TrackID:    trak.Tkhd.TrackID,
			MimeType:   mime,
			Timescale:  1000,
		},
	}
	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale != 0 {
		d.source.Timescale = trak.Mdia.Mdhd.Timescale
	}
	if v := visualEntry(trak); v != nil {
		d.source.Width = int(v.Width)
		d.source.Height = int(v.Height)
	}
	if d.avc {
		d.paramSets = parameterSets(trak)
	}

	if mp4File.IsFragmented() {
		err = d.indexFragmented(mp4File, moov)
	} else {
		err = d.indexProgressive(trak)
	}
	if err != nil {
		return nil, err
	}
	d.source.Duration = d.duration(trak, moov)
	return d, nil
}

func (d *Demuxer) indexProgressive(trak *mp4.TrakBox) error {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return fmt.Errorf("no sample table found")
	}
	stbl := trak.Mdia.Minf.Stbl
	if stbl.Stsz == nil || stbl.Stsc == nil {
		return fmt.Errorf("missing stsz or stsc box")
	}

	syncSamples := make(map[uint32]bool)
	if stbl.Stss != nil {
		for _, nr := range stbl.Stss.SampleNumber {
			syncSamples[nr] = true
		}
	}

	count := stbl.Stsz.SampleNumber
	d.samples = make([]sampleRef, 0, count)
	for nr := uint32(1); nr <= count; nr++ {
		offset, err := sampleOffset(stbl, nr)
		if err != nil {
			return fmt.Errorf("sample %d: %w", nr, err)
		}
		var decodeTime uint64
		var dur uint32
		if stbl.Stts != nil {
			decodeTime, dur = stbl.Stts.GetDecodeTime(nr)
		}
		pts := int64(decodeTime)
		if stbl.Ctts != nil {
			pts += int64(stbl.Ctts.GetCompositionTimeOffset(nr))
		}
		d.samples = append(d.samples, sampleRef{
			offset:   offset,
			size:     stbl.Stsz.GetSampleSize(int(nr)),
			pts:      pts,
			end:      pts + int64(dur),
			keyframe: stbl.Stss == nil || syncSamples[nr],
		})
	}
	return nil
}

// sampleOffset locates a sample through the chunk tables.
func sampleOffset(stbl *mp4.StblBox, nr uint32) (uint64, error) {
	chunkNr, firstSample, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
	if err != nil {
		return 0, fmt.Errorf("get chunk nr: %w", err)
	}

	var offset uint64
	switch {
	case stbl.Stco != nil:
		offset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, fmt.Errorf("get chunk offset: %w", err)
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, fmt.Errorf("chunk nr out of range")
		}
		offset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return 0, fmt.Errorf("no stco or co64 box")
	}

	for s := uint32(firstSample); s < nr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}
	return offset, nil
}

func (d *Demuxer) indexFragmented(mp4File *mp4.File, moov *mp4.MoovBox) error {
	var trex *mp4.TrexBox
	if moov.Mvex != nil {
		for _, t := range moov.Mvex.Trexs {
			if t.TrackID == d.source.TrackID {
				trex = t
				break
			}
		}
	}

	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != d.source.TrackID {
					continue
				}
				samples, err := frag.GetFullSamples(trex)
				if err != nil {
					return fmt.Errorf("get samples: %w", err)
				}
				for _, s := range samples {
					pts := int64(s.DecodeTime) + int64(s.CompositionTimeOffset)
					d.samples = append(d.samples, sampleRef{
						size:     s.Size,
						pts:      pts,
						end:      pts + int64(s.Dur),
						keyframe: s.Flags == mp4.SyncSampleFlags,
						data:     s.Data,
					})
				}
			}
		}
	}
	return nil
}

// duration prefers the media header, then the movie header, then the
// end of the last sample.
func (d *Demuxer) duration(trak *mp4.TrakBox, moov *mp4.MoovBox) time.Duration {
	if mdhd := trak.Mdia.Mdhd; mdhd != nil && mdhd.Duration > 0 && mdhd.Timescale > 0 {
		return toDuration(int64(mdhd.Duration), mdhd.Timescale)
	}
	if mvhd := moov.Mvhd; mvhd != nil && mvhd.Duration > 0 && mvhd.Timescale > 0 {
		return toDuration(int64(mvhd.Duration), mvhd.Timescale)
	}
	var end int64
	for _, s := range d.samples {
		end = max(end, s.end)
	}
	return toDuration(end, d.source.Timescale)
}

func toDuration(t int64, timescale uint32) time.Duration {
	ts := int64(timescale)
	return time.Duration(t/ts)*time.Second + time.Duration(t%ts)*time.Second/time.Duration(ts)
}

// Source returns the selected track.
func (d *Demuxer) Source() ports.MediaSource {
	return d.source
}

// SampleCount returns the number of samples in the track.
func (d *Demuxer) SampleCount() int {
	return len(d.samples)
}

// ReadNextSample returns the sample at the read position.
func (d *Demuxer) ReadNextSample() (ports.CompressedSample, error) {
	if d.pos >= len(d.samples) {
		return ports.CompressedSample{EndOfStream: true}, nil
	}
	ref := d.samples[d.pos]

	data := ref.data
	if data == nil {
		if _, err := d.file.Seek(int64(ref.offset), io.SeekStart); err != nil {
			return ports.CompressedSample{}, fmt.Errorf("seek to sample: %w", err)
		}
		data = make([]byte, ref.size)
		if _, err := io.ReadFull(d.file, data); err != nil {
			return ports.CompressedSample{}, fmt.Errorf("read sample: %w", err)
		}
	}

	if d.avc {
		annexB := avccToAnnexB(data)
		if ref.keyframe && len(d.paramSets) > 0 {
			data = make([]byte, 0, len(d.paramSets)+len(annexB))
			data = append(data, d.paramSets...)
			data = append(data, annexB...)
		} else {
			data = annexB
		}
	}

	return ports.CompressedSample{
		Data:             data,
		PresentationTime: toDuration(ref.pts, d.source.Timescale),
		Keyframe:         ref.keyframe,
	}, nil
}

// Advance moves to the next sample.
func (d *Demuxer) Advance() bool {
	if d.pos < len(d.samples) {
		d.pos++
	}
	return d.pos < len(d.samples)
}

// Close releases the underlying file.
func (d *Demuxer) Close() error {
	if d.closer == nil {
		return nil
	}
	c := d.closer
	d.closer = nil
	return c.Close()
}

var (
	_ ports.Demuxer       = (*Demuxer)(nil)
	_ ports.DemuxerOpener = (*Opener)(nil)
)

package stats

// MixBuckets
//
// 用來快速定位 keep 值 -> 混合帶位置 O(1)
//
// 請勿修改預設值
//   - 混合帶: keep/2^mu 落點 [0,0], (0,10%), [10%,25%), ..., [90%,100%), [100%]
//
// keep 等於 0 表示桶內全是替代項, 等於 2^mu 表示桶完全屬於自身;
// 中間帶越多, 查表後的條件交換越常觸發。
type MixBuckets struct {
	mixBucket    []int // 千分位邊界
	mixBucketStr []string
	mixBucketMap map[int]*MixBucket
}

type MixBucket struct {
	mu     int
	bucket uint64 // 2^mu
	lut    []int  // lut[permill] = idx, 僅涵蓋 (0, 2^mu) 開區間
	maxIdx int
}

// Mixing
//
// 用來快速定位 keep 值 -> 混合帶位置 O(1)
//
// 請勿修改預設值
var Mixing *MixBuckets = &MixBuckets{
	mixBucket:    []int{100, 250, 500, 750, 900},
	mixBucketStr: []string{"[0,0]", "(0,10%)", "[10%,25%)", "[25%,50%)", "[50%,75%)", "[75%,90%)", "[90%,100%)", "[100%]"},
	mixBucketMap: make(map[int]*MixBucket),
}

func (b *MixBuckets) MixBucketStr() []string {
	return b.mixBucketStr
}

func (b *MixBuckets) GetBucketByMu(mu int) *MixBucket {
	result, exist := b.mixBucketMap[mu]
	if !exist {
		result = b.buildBucket(mu)
	}
	return result
}

func (b *MixBuckets) buildBucket(mu int) *MixBucket {
	// 千分位 LUT 與 mu 無關, 固定 1000 格
	lut := make([]int, 1000)

	// 由 (0,10%) 這個混合帶開始
	idx := 0
	for i := 0; i < 1000; i++ {
		for idx < len(b.mixBucket) && i >= b.mixBucket[idx] {
			idx++
		}
		lut[i] = 1 + idx
	}

	result := &MixBucket{
		mu:     mu,
		bucket: uint64(1) << mu,
		lut:    lut,
		maxIdx: len(b.mixBucketStr) - 1,
	}

	b.mixBucketMap[mu] = result
	return result
}

// Index 回傳 keep 所屬的混合帶位置。
//
// 兩端精確處理: keep==0 與 keep==2^mu 不經過千分位換算,
// 避免極小 keep 被捨入進 [0,0] 帶。
func (mb *MixBucket) Index(keep uint64) int {
	if keep == 0 {
		return 0
	}
	if keep >= mb.bucket {
		return mb.maxIdx
	}
	permill := int((keep * 1000) >> mb.mu)
	return mb.lut[permill]
}
